package ontology

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// ProgressFunc receives build progress. Percent is 0..100.
type ProgressFunc func(stage string, percent int, message string)

// Build stages, reported in order.
const (
	StageExtract = "extract"
	StageMerge   = "merge"
	StageCluster = "cluster"
	StageCreate  = "create_ontology"
)

type BuildRequest struct {
	SourcePath string
	OutputPath string
	IRI        string
}

type BuildResult struct {
	OutputPath string
	ClassCount int
}

// Builder turns an uploaded document into an ontology file. The real
// document-understanding pipeline lives behind this interface; TreeBuilder is
// a deterministic structural implementation.
type Builder interface {
	Build(ctx context.Context, req BuildRequest, progress ProgressFunc) (*BuildResult, error)
}

// TreeBuilder derives a class hierarchy from the document's paragraph
// structure: paragraphs are extracted, short ones merged into their
// predecessor, runs of paragraphs clustered into topics, and the result
// written as an OWL/XML file with a summary annotation per class.
type TreeBuilder struct {
	// MinParagraphLen is the threshold below which a paragraph is merged
	// into the previous one.
	MinParagraphLen int

	// ClusterSize is how many paragraphs form one topic class.
	ClusterSize int
}

var _ Builder = &TreeBuilder{}

func NewTreeBuilder() *TreeBuilder {
	return &TreeBuilder{
		MinParagraphLen: 80,
		ClusterSize:     4,
	}
}

func (b *TreeBuilder) Build(ctx context.Context, req BuildRequest, progress ProgressFunc) (*BuildResult, error) {
	if progress == nil {
		progress = func(string, int, string) {}
	}

	progress(StageExtract, 5, "extracting paragraphs")
	paragraphs, err := extractParagraphs(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("extract paragraphs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	progress(StageExtract, 25, fmt.Sprintf("%d paragraphs extracted", len(paragraphs)))

	merged := b.mergeShortParagraphs(paragraphs)
	progress(StageMerge, 45, fmt.Sprintf("%d paragraphs after merge", len(merged)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters := b.cluster(merged)
	progress(StageCluster, 70, fmt.Sprintf("%d topic clusters", len(clusters)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(StageCreate, 85, "writing ontology")
	onto := newFromClusters(req.IRI, clusters)
	if err := onto.Save(req.OutputPath); err != nil {
		return nil, fmt.Errorf("save ontology: %w", err)
	}
	progress(StageCreate, 100, "done")

	return &BuildResult{
		OutputPath: req.OutputPath,
		ClassCount: len(onto.Classes),
	}, nil
}

func extractParagraphs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var paragraphs []string
	var current strings.Builder

	flush := func() {
		p := strings.TrimSpace(current.String())
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = stripNonText(line)
		if line == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("document %s contains no extractable text", path)
	}
	return paragraphs, nil
}

// stripNonText drops bytes outside the printable range so binary PDF
// operators don't leak into class summaries.
func stripNonText(line string) string {
	var sb strings.Builder
	for _, r := range line {
		if r == '\t' || (r >= 0x20 && r != 0x7f) {
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (b *TreeBuilder) mergeShortParagraphs(paragraphs []string) []string {
	var merged []string
	for _, p := range paragraphs {
		if len(merged) > 0 && len(p) < b.MinParagraphLen {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + p
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

type cluster struct {
	Label      string
	Paragraphs []string
}

func (b *TreeBuilder) cluster(paragraphs []string) []cluster {
	size := b.ClusterSize
	if size < 1 {
		size = 1
	}

	var clusters []cluster
	for start := 0; start < len(paragraphs); start += size {
		end := start + size
		if end > len(paragraphs) {
			end = len(paragraphs)
		}
		group := paragraphs[start:end]
		clusters = append(clusters, cluster{
			Label:      headline(group[0]),
			Paragraphs: group,
		})
	}
	return clusters
}

// headline takes the first few words of a paragraph as the class label.
func headline(paragraph string) string {
	words := strings.Fields(paragraph)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}
