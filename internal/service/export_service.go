package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/pkg/config"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type visibleSource interface {
	Visible() (*models.ActivitySet, models.FilterSelection)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered roster ready to download.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the currently visible activities.
type ExportService struct {
	source visibleSource
	csv    csvRenderer
	pdf    pdfRenderer
	title  string
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs the service.
func NewExportService(source visibleSource, csv csvRenderer, pdf pdfRenderer, cfg config.ExportConfig, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	title := cfg.PDFTitle
	if title == "" {
		title = "Extracurricular Activities"
	}
	return &ExportService{source: source, csv: csv, pdf: pdf, title: title, logger: logger, now: time.Now}
}

// Export renders the visible set in format.
func (s *ExportService) Export(format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	visible, selection := s.source.Visible()
	if visible == nil {
		return nil, appErrors.ErrNotFetched
	}
	dataset := s.dataset(visible, selection)

	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		body, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		body, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("activities-%s.%s", s.now().Format("20060102-150405"), format)
	s.logger.Debug("roster exported", zap.String("format", format), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{Filename: filename, ContentType: contentType, Body: body}, nil
}

func (s *ExportService) dataset(visible *models.ActivitySet, selection models.FilterSelection) export.Dataset {
	data := export.Dataset{
		Title:    s.title,
		Subtitle: describeSelection(selection),
		Columns: []export.Column{
			{Key: "name", Label: "Activity", Weight: 2},
			{Key: "category", Label: "Category"},
			{Key: "schedule", Label: "Schedule", Weight: 2.5},
			{Key: "spots_left", Label: "Spots Left", Weight: 0.8},
			{Key: "participants", Label: "Participants", Weight: 3.5},
		},
	}
	for _, activity := range visible.Activities() {
		schedule, err := FormatSchedule(activity)
		if err != nil {
			schedule = activity.Schedule
		}
		data.Rows = append(data.Rows, map[string]string{
			"name":         activity.Name,
			"category":     string(ClassifyActivity(activity.Name, activity.Description)),
			"schedule":     schedule,
			"spots_left":   strconv.Itoa(activity.DisplaySpotsLeft()),
			"participants": strings.Join(activity.Participants, ", "),
		})
	}
	return data
}

func describeSelection(selection models.FilterSelection) string {
	selection = selection.Normalized()
	parts := []string{"Category: " + string(selection.Category)}
	if selection.Day != "" {
		parts = append(parts, "Day: "+selection.Day)
	}
	if selection.TimeRange != models.TimeRangeNone {
		parts = append(parts, "Time: "+string(selection.TimeRange))
	}
	if selection.SearchQuery != "" {
		parts = append(parts, fmt.Sprintf("Search: %q", selection.SearchQuery))
	}
	return strings.Join(parts, " | ")
}
