package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Title", "Author"},
		Rows: []map[string]string{
			{"Title": "Algebra Basics", "Author": "J. Cruz"},
			{"Title": "Physics 101", "Author": "A. Reyes"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	content, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Title,Author", lines[0])
	assert.Equal(t, "Algebra Basics,J. Cruz", lines[1])
}

func TestCSVExporterMissingCellsStayEmpty(t *testing.T) {
	data := Dataset{
		Headers: []string{"Title", "Author"},
		Rows:    []map[string]string{{"Title": "Orphan"}},
	}
	content, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Orphan,")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	content, err := NewPDFExporter().Render(sampleDataset(), "Catalog")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}
