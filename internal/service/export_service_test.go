package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrms-portal/lrms-api/internal/models"
	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
	"github.com/lrms-portal/lrms-api/pkg/export"
)

func newTestExportService(repo *mockMaterialRepo) *ExportService {
	return NewExportService(repo, export.NewCSVExporter(), export.NewPDFExporter(), nil, 100)
}

func TestExportCSV(t *testing.T) {
	repo := newMockMaterialRepo()
	repo.materials[1] = &models.Material{
		ID:         1,
		Title:      "Algebra Basics",
		Author:     "J. Cruz",
		TypeName:   "Module",
		Downloads:  3,
		Views:      10,
		UploadedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	repo.listTotal = 1
	svc := newTestExportService(repo)

	result, err := svc.Export(context.Background(), models.MaterialFilter{}, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	content := string(result.Content)
	assert.Contains(t, content, "Title,Author,Type")
	assert.Contains(t, content, "Algebra Basics,J. Cruz,Module")
	assert.Contains(t, content, "2025-06-01")
}

func TestExportPDF(t *testing.T) {
	repo := newMockMaterialRepo()
	repo.materials[1] = &models.Material{ID: 1, Title: "Algebra Basics", UploadedAt: time.Now()}
	repo.listTotal = 1
	svc := newTestExportService(repo)

	result, err := svc.Export(context.Background(), models.MaterialFilter{}, ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportUnknownFormat(t *testing.T) {
	svc := newTestExportService(newMockMaterialRepo())

	_, err := svc.Export(context.Background(), models.MaterialFilter{}, ExportFormat("xml"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportCapsPageSize(t *testing.T) {
	repo := newMockMaterialRepo()
	svc := newTestExportService(repo)

	_, err := svc.Export(context.Background(), models.MaterialFilter{Page: 7, PageSize: 3}, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, 100, repo.lastFilter.PageSize)
}
