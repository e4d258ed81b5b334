package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title: "Activities",
		Columns: []Column{
			{Key: "name", Label: "Name", Weight: 2},
			{Key: "spots", Label: "Spots Left"},
			{Key: "participants", Label: "Participants", Weight: 3},
		},
		Rows: []map[string]string{
			{"name": "Chess Club", "spots": "10", "participants": "michael@mergington.edu, daniel@mergington.edu"},
			{"name": "Art, Paint & Draw", "spots": "0"},
		},
	}
}

func TestCSVExporterRendersColumnsInOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Name", "Spots Left", "Participants"},
		{"Chess Club", "10", "michael@mergington.edu, daniel@mergington.edu"},
		{"Art, Paint & Draw", "0", ""},
	}, records)
}

func TestExportersRequireColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	data := sampleDataset()
	data.Subtitle = "Category: all"
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleDataset().Columns)
	require.Len(t, widths, 3)
	assert.InDelta(t, pdfPageWidth, widths[0]+widths[1]+widths[2], 0.001)
	assert.InDelta(t, widths[1]*2, widths[0], 0.001)
}
