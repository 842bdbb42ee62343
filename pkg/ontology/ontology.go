package ontology

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Ontology is the knowledge structure built from a document: a flat list of
// classes, each carrying a parent reference and a summary annotation. This is
// the subset of OWL/XML the chat layer needs.
type Ontology struct {
	XMLName xml.Name `xml:"Ontology"`
	IRI     string   `xml:"iri,attr"`
	Classes []Class  `xml:"Class"`
}

type Class struct {
	Name    string `xml:"name,attr"`
	Parent  string `xml:"parent,attr,omitempty"`
	Summary string `xml:"Summary"`
}

// Ref points at an ontology file on disk.
type Ref struct {
	Name string
	Path string
}

func newFromClusters(iri string, clusters []cluster) *Ontology {
	onto := &Ontology{IRI: iri}
	onto.Classes = append(onto.Classes, Class{
		Name:    "Thing",
		Summary: "root",
	})

	for i, cl := range clusters {
		topicName := fmt.Sprintf("Topic_%d", i+1)
		onto.Classes = append(onto.Classes, Class{
			Name:    topicName,
			Parent:  "Thing",
			Summary: cl.Label,
		})
		for j, p := range cl.Paragraphs {
			onto.Classes = append(onto.Classes, Class{
				Name:    fmt.Sprintf("%s_Node_%d", topicName, j+1),
				Parent:  topicName,
				Summary: summarize(p),
			})
		}
	}
	return onto
}

// summarize keeps the first sentence, capped.
func summarize(paragraph string) string {
	if idx := strings.IndexAny(paragraph, ".!?"); idx > 0 && idx < len(paragraph)-1 {
		paragraph = paragraph[:idx+1]
	}
	const maxLen = 240
	if len(paragraph) > maxLen {
		// Cut on a rune boundary so multi-byte text never yields a broken
		// trailing character.
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(paragraph[cut]) {
			cut--
		}
		paragraph = paragraph[:cut]
	}
	return strings.TrimSpace(paragraph)
}

func (o *Ontology) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := xml.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), data...), 0o644)
}

func Load(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var onto Ontology
	if err := xml.Unmarshal(data, &onto); err != nil {
		return nil, fmt.Errorf("parse ontology %s: %w", path, err)
	}
	return &onto, nil
}

// Explication flattens class summaries into the grounding context handed to
// the answer generator.
func (o *Ontology) Explication() string {
	var sb strings.Builder
	for _, c := range o.Classes {
		if c.Summary == "" || c.Name == "Thing" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(c.Name)
		if c.Parent != "" && c.Parent != "Thing" {
			sb.WriteString(" (part of ")
			sb.WriteString(c.Parent)
			sb.WriteString(")")
		}
		sb.WriteString(": ")
		sb.WriteString(c.Summary)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ListAvailable scans dir for .owl files, the prebuilt ontologies every
// session may chat against.
func ListAvailable(dir string) ([]Ref, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var refs []Ref
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".owl") {
			continue
		}
		refs = append(refs, Ref{
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	return refs, nil
}
