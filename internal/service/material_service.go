package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/lrms-portal/lrms-api/internal/models"
	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
)

type materialRepository interface {
	List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, int, error)
	FindByID(ctx context.Context, id int64) (*models.Material, error)
	Create(ctx context.Context, m *models.Material) error
	SetFileName(ctx context.Context, id int64, fileName string) error
	IncrementViews(ctx context.Context, id int64) error
	IncrementDownloads(ctx context.Context, id int64) error
	DistinctLearningAreas(ctx context.Context, subjectType string) ([]string, error)
}

type fileStore interface {
	SaveStream(filename string, r io.Reader) (int64, error)
	Open(filename string) (io.ReadCloser, error)
	Delete(filename string) error
}

type linkSigner interface {
	Generate(materialID, relPath string) (string, time.Time, error)
	Parse(token string) (materialID, relPath string, expiresAt time.Time, err error)
}

type optionsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// NamesLister supplies option names for one reference collection.
type NamesLister interface {
	Names(ctx context.Context) ([]string, error)
}

// MaterialConfig holds tunables for the materials module.
type MaterialConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	FilterCacheTTL   time.Duration
	DownloadBasePath string
}

const filterOptionsCacheKey = "lrms:filter-options"

// bulkUploadHeader is the expected first row of a metadata workbook, in order.
var bulkUploadHeader = []string{
	"Title", "Description", "Author", "Type", "Grade Level",
	"Learning Area", "Subject Type", "Track", "Strand", "Component",
}

// MaterialService implements catalog browsing, bulk metadata upload, file
// attachment, viewing, downloading and shared links.
type MaterialService struct {
	repo    materialRepository
	files   fileStore
	signer  linkSigner
	cache   optionsCache
	metrics *MetricsService
	options map[string]NamesLister
	logger  *zap.Logger
	config  MaterialConfig
}

// NewMaterialService constructs a MaterialService. The options map is keyed
// by reference table name and feeds the filter-option lists.
func NewMaterialService(repo materialRepository, files fileStore, signer linkSigner, cache optionsCache, metrics *MetricsService, options map[string]NamesLister, logger *zap.Logger, config MaterialConfig) *MaterialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 50 << 20
	}
	if config.FilterCacheTTL <= 0 {
		config.FilterCacheTTL = 10 * time.Minute
	}
	if config.DownloadBasePath == "" {
		config.DownloadBasePath = "/lrms/files"
	}
	return &MaterialService{
		repo:    repo,
		files:   files,
		signer:  signer,
		cache:   cache,
		metrics: metrics,
		options: options,
		logger:  logger,
		config:  config,
	}
}

// List returns catalog entries matching the filter along with pagination
// metadata. A page past the last match yields an empty slice.
func (s *MaterialService) List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, *models.Pagination, error) {
	materials, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	if materials == nil {
		materials = []models.Material{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 10
	}

	return materials, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one material by id.
func (s *MaterialService) Get(ctx context.Context, id int64) (*models.Material, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch material")
	}
	return material, nil
}

// BulkUpload ingests an Excel workbook of material metadata. Rows that cannot
// be inserted are skipped and reported; the rest are committed.
func (s *MaterialService) BulkUpload(ctx context.Context, r io.Reader) (*models.BulkUploadResult, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is not a readable Excel workbook")
	}
	defer workbook.Close() //nolint:errcheck

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read workbook rows")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook is empty")
	}

	if err := validateBulkHeader(rows[0]); err != nil {
		return nil, err
	}

	result := &models.BulkUploadResult{}
	for i, row := range rows[1:] {
		rowNum := i + 2

		if isBlankRow(row) {
			continue
		}

		material := rowToMaterial(row)
		if material.Title == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: title is required", rowNum))
			continue
		}

		if err := s.repo.Create(ctx, material); err != nil {
			if ctx.Err() != nil {
				return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "upload cancelled")
			}
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			s.logger.Warn("bulk upload row failed", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		result.Inserted++
	}

	s.logger.Info("bulk material upload finished",
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// AttachFile stores the uploaded file and links it to the material. Size and
// content type are checked before anything touches disk.
func (s *MaterialService) AttachFile(ctx context.Context, id int64, originalName, contentType string, size int64, r io.Reader) (*models.Material, error) {
	material, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, "")
	}
	if !s.mimeAllowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFile, fmt.Sprintf("content type %q is not allowed", contentType))
	}

	ext := filepath.Ext(originalName)
	stored := fmt.Sprintf("materials/%d/%s%s", id, uuid.NewString(), ext)

	written, err := s.files.SaveStream(stored, io.LimitReader(r, s.config.MaxFileSizeBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if written > s.config.MaxFileSizeBytes {
		if err := s.files.Delete(stored); err != nil {
			s.logger.Warn("failed to remove oversized upload", zap.String("file", stored), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, "")
	}

	if err := s.repo.SetFileName(ctx, id, stored); err != nil {
		if delErr := s.files.Delete(stored); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("file", stored), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link file to material")
	}

	if material.HasFile() && *material.FileName != stored {
		if err := s.files.Delete(*material.FileName); err != nil {
			s.logger.Warn("failed to remove replaced file", zap.String("file", *material.FileName), zap.Error(err))
		}
	}

	material.FileName = &stored
	return material, nil
}

// View opens the material file for inline display. The view counter is
// best-effort; a failed bump never blocks the stream.
func (s *MaterialService) View(ctx context.Context, id int64) (*models.Material, io.ReadCloser, error) {
	material, file, err := s.openFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("failed to bump view counter", zap.Int64("material_id", id), zap.Error(err))
	} else {
		material.Views++
	}
	return material, file, nil
}

// Download opens the material file for attachment download and bumps the
// download counter best-effort.
func (s *MaterialService) Download(ctx context.Context, id int64) (*models.Material, io.ReadCloser, error) {
	material, file, err := s.openFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.IncrementDownloads(ctx, id); err != nil {
		s.logger.Warn("failed to bump download counter", zap.Int64("material_id", id), zap.Error(err))
	} else {
		material.Downloads++
	}
	return material, file, nil
}

// CreateDownloadLink issues an expiring signed link for sharing the file.
func (s *MaterialService) CreateDownloadLink(ctx context.Context, id int64) (*models.DownloadLink, error) {
	material, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !material.HasFile() {
		return nil, appErrors.Clone(appErrors.ErrNoFile, "")
	}

	token, expiresAt, err := s.signer.Generate(strconv.FormatInt(id, 10), *material.FileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &models.DownloadLink{
		Token:     token,
		URL:       fmt.Sprintf("%s/%s", strings.TrimRight(s.config.DownloadBasePath, "/"), token),
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownloadToken validates a signed token and opens the referenced
// file. Tokens survive file replacement only if the stored path still matches.
func (s *MaterialService) ResolveDownloadToken(ctx context.Context, token string) (*models.Material, io.ReadCloser, error) {
	rawID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired link")
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired link")
	}

	material, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !material.HasFile() || *material.FileName != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "file is no longer available")
	}

	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}

	if err := s.repo.IncrementDownloads(ctx, id); err != nil {
		s.logger.Warn("failed to bump download counter", zap.Int64("material_id", id), zap.Error(err))
	}
	return material, file, nil
}

// FilterOptions assembles the dropdown option lists, served from cache when
// fresh.
func (s *MaterialService) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	if s.cache != nil {
		var cached models.FilterOptions
		err := s.cache.Get(ctx, filterOptionsCacheKey, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("filter-options cache read failed", zap.Error(err))
		}
	}

	options := &models.FilterOptions{}
	fill := []struct {
		table string
		dest  *[]string
	}{
		{"learning_areas", &options.LearningAreas},
		{"components", &options.Components},
		{"tracks", &options.Tracks},
		{"strands", &options.Strands},
		{"material_types", &options.Types},
		{"grade_levels", &options.GradeLevels},
		{"subject_types", &options.SubjectTypes},
	}
	for _, f := range fill {
		lister, ok := s.options[f.table]
		if !ok {
			continue
		}
		names, err := lister.Names(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s options", f.table))
		}
		if names == nil {
			names = []string{}
		}
		*f.dest = names
	}

	groups := []struct {
		subjectType string
		dest        *[]string
	}{
		{"Core", &options.CoreSubjects},
		{"Applied", &options.AppliedSubjects},
		{"Specialized", &options.SpecializedSubjects},
	}
	for _, g := range groups {
		names, err := s.repo.DistinctLearningAreas(ctx, g.subjectType)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject groups")
		}
		if names == nil {
			names = []string{}
		}
		*g.dest = names
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, filterOptionsCacheKey, options, s.config.FilterCacheTTL); err != nil {
			s.logger.Warn("filter-options cache write failed", zap.Error(err))
		}
	}
	return options, nil
}

func (s *MaterialService) openFile(ctx context.Context, id int64) (*models.Material, io.ReadCloser, error) {
	material, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !material.HasFile() {
		return nil, nil, appErrors.Clone(appErrors.ErrNoFile, "")
	}

	file, err := s.files.Open(*material.FileName)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return material, file, nil
}

func (s *MaterialService) mimeAllowed(contentType string) bool {
	if len(s.config.AllowedMIMEs) == 0 {
		return true
	}
	base := contentType
	if idx := strings.Index(base, ";"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(strings.ToLower(base))
	for _, allowed := range s.config.AllowedMIMEs {
		if strings.EqualFold(strings.TrimSpace(allowed), base) {
			return true
		}
	}
	return false
}

func validateBulkHeader(header []string) error {
	if len(header) < len(bulkUploadHeader) {
		return appErrors.Clone(appErrors.ErrValidation, "workbook header is missing columns")
	}
	for i, want := range bulkUploadHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unexpected header %q in column %d, want %q", header[i], i+1, want))
		}
	}
	return nil
}

func rowToMaterial(row []string) *models.Material {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	return &models.Material{
		Title:            cell(0),
		Description:      cell(1),
		Author:           cell(2),
		TypeName:         cell(3),
		GradeLevelName:   cell(4),
		LearningAreaName: cell(5),
		SubjectTypeName:  cell(6),
		TrackName:        cell(7),
		StrandName:       cell(8),
		ComponentName:    cell(9),
	}
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
