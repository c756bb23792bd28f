package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lrms-portal/lrms-api/internal/models"
	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
	"github.com/lrms-portal/lrms-api/pkg/export"
)

// ExportFormat identifies a supported catalog export format.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

var exportHeaders = []string{
	"Title", "Author", "Type", "Grade Level", "Learning Area",
	"Subject Type", "Track", "Strand", "Component", "Downloads", "Views", "Uploaded",
}

// ExportResult carries rendered export bytes with response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders catalog snapshots as CSV or PDF downloads.
type ExportService struct {
	materials materialRepository
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
	maxRows   int
}

// NewExportService constructs an ExportService instance.
func NewExportService(materials materialRepository, csv *export.CSVExporter, pdf *export.PDFExporter, logger *zap.Logger, maxRows int) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ExportService{materials: materials, csv: csv, pdf: pdf, logger: logger, maxRows: maxRows}
}

// Export renders the filtered catalog in the requested format. Exports are
// capped at maxRows; larger result sets are truncated, not rejected.
func (s *ExportService) Export(ctx context.Context, filter models.MaterialFilter, format ExportFormat) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = s.maxRows

	materials, total, err := s.materials.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load materials for export")
	}
	if total > len(materials) {
		s.logger.Warn("export truncated", zap.Int("total", total), zap.Int("exported", len(materials)))
	}

	data := export.Dataset{Headers: exportHeaders}
	for _, m := range materials {
		data.Rows = append(data.Rows, map[string]string{
			"Title":         m.Title,
			"Author":        m.Author,
			"Type":          m.TypeName,
			"Grade Level":   m.GradeLevelName,
			"Learning Area": m.LearningAreaName,
			"Subject Type":  m.SubjectTypeName,
			"Track":         m.TrackName,
			"Strand":        m.StrandName,
			"Component":     m.ComponentName,
			"Downloads":     strconv.FormatInt(m.Downloads, 10),
			"Views":         strconv.FormatInt(m.Views, 10),
			"Uploaded":      m.UploadedAt.Format("2006-01-02"),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("materials-%s.csv", stamp),
		}, nil
	case ExportPDF:
		content, err := s.pdf.Render(data, "Learning Materials Catalog")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("materials-%s.pdf", stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
