package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lrms-portal/lrms-api/internal/models"
	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
)

type referenceRepository interface {
	Resource() models.ReferenceResource
	List(ctx context.Context, filter models.ReferenceFilter) ([]models.ReferenceEntry, int, error)
	Names(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id int64) (*models.ReferenceEntry, error)
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, entry *models.ReferenceEntry) error
	Update(ctx context.Context, entry *models.ReferenceEntry) error
	Delete(ctx context.Context, id int64) error
	CountStrandsByTrack(ctx context.Context, trackID int64) (int, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ReferenceService implements CRUD use cases for one reference collection.
// The same implementation serves all ten collections; behaviour differences
// (track reference, delete guard) follow the bound descriptor.
type ReferenceService struct {
	repo      referenceRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService constructs a service bound to one resource repository.
func NewReferenceService(repo referenceRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReferenceService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Resource exposes the bound descriptor for routing and logging.
func (s *ReferenceService) Resource() models.ReferenceResource {
	return s.repo.Resource()
}

// List returns entries matching the filter along with pagination metadata.
// A page past the last match yields an empty slice, not an error.
func (s *ReferenceService) List(ctx context.Context, filter models.ReferenceFilter) ([]models.ReferenceEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list %ss", s.resourceName()))
	}
	if entries == nil {
		entries = []models.ReferenceEntry{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}

	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one entry by id.
func (s *ReferenceService) Get(ctx context.Context, id int64) (*models.ReferenceEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", s.resourceName()))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to fetch %s", s.resourceName()))
	}
	return entry, nil
}

// Create adds a new entry. Names are trimmed and unique case-insensitively
// within the collection.
func (s *ReferenceService) Create(ctx context.Context, req models.ReferenceEntryRequest) (*models.ReferenceEntry, error) {
	entry, err := s.buildEntry(ctx, req, 0)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to create %s", s.resourceName()))
	}

	s.invalidateFilterCache(ctx)
	return entry, nil
}

// Update modifies an existing entry.
func (s *ReferenceService) Update(ctx context.Context, id int64, req models.ReferenceEntryRequest) (*models.ReferenceEntry, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entry, err := s.buildEntry(ctx, req, id)
	if err != nil {
		return nil, err
	}
	entry.ID = existing.ID
	entry.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to update %s", s.resourceName()))
	}

	s.invalidateFilterCache(ctx)
	return entry, nil
}

// Delete removes an entry. Deleting a missing id yields 404. Tracks that
// still have strands attached cannot be deleted.
func (s *ReferenceService) Delete(ctx context.Context, id int64) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if s.repo.Resource().Table == "tracks" {
		count, err := s.repo.CountStrandsByTrack(ctx, entry.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check strand references")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("track is referenced by %d strand(s)", count))
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to delete %s", s.resourceName()))
	}

	s.invalidateFilterCache(ctx)
	return nil
}

// Names returns every entry name sorted alphabetically.
func (s *ReferenceService) Names(ctx context.Context) ([]string, error) {
	names, err := s.repo.Names(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list %s names", s.resourceName()))
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *ReferenceService) buildEntry(ctx context.Context, req models.ReferenceEntryRequest, excludeID int64) (*models.ReferenceEntry, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid %s payload", s.resourceName()))
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check name uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %q already exists", s.resourceName(), req.Name))
	}

	entry := &models.ReferenceEntry{Name: req.Name, Description: req.Description}
	if s.repo.Resource().HasTrack {
		entry.TrackID = req.TrackID
	}
	return entry, nil
}

// invalidateFilterCache drops cached filter options after a write. Failures
// only shorten cache freshness, so they are logged and swallowed.
func (s *ReferenceService) invalidateFilterCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "lrms:filter-options*"); err != nil {
		s.logger.Warn("failed to invalidate filter-options cache",
			zap.String("resource", s.resourceName()),
			zap.Error(err),
		)
	}
}

func (s *ReferenceService) resourceName() string {
	return s.repo.Resource().Name
}
