package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/pkg/config"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/export"
)

type staticVisible struct {
	set       *models.ActivitySet
	selection models.FilterSelection
}

func (s staticVisible) Visible() (*models.ActivitySet, models.FilterSelection) {
	return s.set, s.selection
}

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) { return nil, errors.New("boom") }

func TestExportCSVOfVisibleSet(t *testing.T) {
	chess := structured("Chess Club", "Learn strategies", "15:30", "17:00", "Monday", "Friday")
	chess.Participants = []string{"michael@mergington.edu", "daniel@mergington.edu"}
	source := staticVisible{set: models.NewActivitySet(chess)}
	svc := NewExportService(source, nil, nil, config.ExportConfig{}, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }

	res, err := svc.Export("")
	require.NoError(t, err)
	assert.Equal(t, "activities-20260302-093000.csv", res.Filename)
	assert.Equal(t, "text/csv", res.ContentType)

	records, err := csv.NewReader(bytes.NewReader(res.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Activity", "Category", "Schedule", "Spots Left", "Participants"}, records[0])
	assert.Equal(t, []string{"Chess Club", "academic", "Monday, Friday, 3:30 PM - 5:00 PM", "8", "michael@mergington.edu, daniel@mergington.edu"}, records[1])
}

func TestExportPDF(t *testing.T) {
	source := staticVisible{set: models.NewActivitySet(legacy("Art Studio", "Paint", "Fridays"))}
	svc := NewExportService(source, nil, nil, config.ExportConfig{PDFTitle: "Roster"}, nil)

	res, err := svc.Export("PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.True(t, bytes.HasPrefix(res.Body, []byte("%PDF-")))
}

func TestExportErrors(t *testing.T) {
	_, err := NewExportService(staticVisible{}, nil, nil, config.ExportConfig{}, nil).Export("csv")
	assert.True(t, errors.Is(err, appErrors.ErrNotFetched))

	svc := NewExportService(staticVisible{set: models.NewActivitySet()}, nil, nil, config.ExportConfig{}, nil)
	_, err = svc.Export("xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	svc = NewExportService(staticVisible{set: models.NewActivitySet()}, failingRenderer{}, nil, config.ExportConfig{}, nil)
	_, err = svc.Export("csv")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestDescribeSelection(t *testing.T) {
	got := describeSelection(models.FilterSelection{Day: "Monday", TimeRange: models.TimeRangeAfterSchool, SearchQuery: "chess"})
	assert.Equal(t, `Category: all | Day: Monday | Time: after-school | Search: "chess"`, got)
}
