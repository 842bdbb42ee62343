package ontology

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractParagraphs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "blank lines separate paragraphs",
			content: "first paragraph\n\nsecond paragraph",
			want:    []string{"first paragraph", "second paragraph"},
		},
		{
			name:    "consecutive lines join with a space",
			content: "line one\nline two\n\nnext",
			want:    []string{"line one line two", "next"},
		},
		{
			name:    "control bytes are stripped",
			content: "text\x00with\x01noise here\n\nclean",
			want:    []string{"textwithnoise here", "clean"},
		},
		{
			name:    "empty document",
			content: "\n\n\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractParagraphs(writeDoc(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeShortParagraphs(t *testing.T) {
	b := &TreeBuilder{MinParagraphLen: 10, ClusterSize: 4}

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "short paragraph merges into predecessor",
			in:   []string{"a long enough paragraph", "tiny"},
			want: []string{"a long enough paragraph tiny"},
		},
		{
			name: "leading short paragraph stays",
			in:   []string{"tiny", "a long enough paragraph"},
			want: []string{"tiny", "a long enough paragraph"},
		},
		{
			name: "long paragraphs untouched",
			in:   []string{"first long paragraph", "second long paragraph"},
			want: []string{"first long paragraph", "second long paragraph"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.mergeShortParagraphs(tt.in))
		})
	}
}

func TestClusterGroupsParagraphs(t *testing.T) {
	b := &TreeBuilder{ClusterSize: 2}
	paragraphs := []string{"one two three", "four", "five", "six", "seven"}

	clusters := b.cluster(paragraphs)

	require.Len(t, clusters, 3)
	assert.Len(t, clusters[0].Paragraphs, 2)
	assert.Len(t, clusters[2].Paragraphs, 1)
	assert.Equal(t, "one two three", clusters[0].Label)
}

func TestBuildProducesLoadableOntology(t *testing.T) {
	paragraph := strings.Repeat("Graph databases store entities and their relationships natively. ", 3)
	source := writeDoc(t, paragraph+"\n\n"+paragraph+"\n\n"+paragraph)
	output := filepath.Join(t.TempDir(), "out.owl")

	var stages []string
	result, err := NewTreeBuilder().Build(context.Background(), BuildRequest{
		SourcePath: source,
		OutputPath: output,
		IRI:        "http://www.semanticweb.org/test_MINDMAP",
	}, func(stage string, percent int, message string) {
		stages = append(stages, stage)
	})
	require.NoError(t, err)
	assert.Equal(t, output, result.OutputPath)
	assert.Greater(t, result.ClassCount, 0)

	assert.Contains(t, stages, StageExtract)
	assert.Contains(t, stages, StageCreate)

	onto, err := Load(output)
	require.NoError(t, err)
	assert.Len(t, onto.Classes, result.ClassCount)
	assert.NotEmpty(t, onto.Explication())
}

func TestBuildMissingSource(t *testing.T) {
	_, err := NewTreeBuilder().Build(context.Background(), BuildRequest{
		SourcePath: filepath.Join(t.TempDir(), "missing.txt"),
		OutputPath: filepath.Join(t.TempDir(), "out.owl"),
		IRI:        "http://www.semanticweb.org/test_MINDMAP",
	}, nil)

	assert.Error(t, err)
}

func TestBuildHonoursCancellation(t *testing.T) {
	source := writeDoc(t, "some paragraph that is plenty long enough to survive merging")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTreeBuilder().Build(ctx, BuildRequest{
		SourcePath: source,
		OutputPath: filepath.Join(t.TempDir(), "out.owl"),
		IRI:        "http://www.semanticweb.org/test_MINDMAP",
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestListAvailableMissingDir(t *testing.T) {
	refs, err := ListAvailable(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, refs)
}
