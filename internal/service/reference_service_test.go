package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrms-portal/lrms-api/internal/models"
	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
)

type mockReferenceRepo struct {
	resource     models.ReferenceResource
	entries      []models.ReferenceEntry
	total        int
	byID         *models.ReferenceEntry
	findErr      error
	nameExists   bool
	created      *models.ReferenceEntry
	updated      *models.ReferenceEntry
	deletedID    int64
	strandCount  int
	names        []string
	lastExclude  int64
	lastFilter   models.ReferenceFilter
}

func (m *mockReferenceRepo) Resource() models.ReferenceResource { return m.resource }

func (m *mockReferenceRepo) List(ctx context.Context, filter models.ReferenceFilter) ([]models.ReferenceEntry, int, error) {
	m.lastFilter = filter
	return m.entries, m.total, nil
}

func (m *mockReferenceRepo) Names(ctx context.Context) ([]string, error) {
	return m.names, nil
}

func (m *mockReferenceRepo) FindByID(ctx context.Context, id int64) (*models.ReferenceEntry, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.byID, nil
}

func (m *mockReferenceRepo) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	m.lastExclude = excludeID
	return m.nameExists, nil
}

func (m *mockReferenceRepo) Create(ctx context.Context, entry *models.ReferenceEntry) error {
	entry.ID = 1
	m.created = entry
	return nil
}

func (m *mockReferenceRepo) Update(ctx context.Context, entry *models.ReferenceEntry) error {
	m.updated = entry
	return nil
}

func (m *mockReferenceRepo) Delete(ctx context.Context, id int64) error {
	m.deletedID = id
	return nil
}

func (m *mockReferenceRepo) CountStrandsByTrack(ctx context.Context, trackID int64) (int, error) {
	return m.strandCount, nil
}

type mockCache struct {
	deletedPatterns []string
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletedPatterns = append(m.deletedPatterns, pattern)
	return nil
}

func TestReferenceServiceCreateTrimsAndChecksDuplicates(t *testing.T) {
	repo := &mockReferenceRepo{resource: models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"}}
	cache := &mockCache{}
	svc := NewReferenceService(repo, cache, nil, nil)

	entry, err := svc.Create(context.Background(), models.ReferenceEntryRequest{Name: "  Curriculum Division  "})
	require.NoError(t, err)
	assert.Equal(t, "Curriculum Division", entry.Name)
	assert.NotEmpty(t, cache.deletedPatterns)
}

func TestReferenceServiceCreateConflict(t *testing.T) {
	repo := &mockReferenceRepo{
		resource:   models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"},
		nameExists: true,
	}
	svc := NewReferenceService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), models.ReferenceEntryRequest{Name: "Curriculum Division"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestReferenceServiceCreateRejectsBlankName(t *testing.T) {
	repo := &mockReferenceRepo{resource: models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"}}
	svc := NewReferenceService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), models.ReferenceEntryRequest{Name: "   "})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReferenceServiceCreateIgnoresTrackForPlainResources(t *testing.T) {
	repo := &mockReferenceRepo{resource: models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"}}
	svc := NewReferenceService(repo, nil, nil, nil)

	trackID := int64(3)
	entry, err := svc.Create(context.Background(), models.ReferenceEntryRequest{Name: "Records", TrackID: &trackID})
	require.NoError(t, err)
	assert.Nil(t, entry.TrackID)
}

func TestReferenceServiceCreateKeepsTrackForStrands(t *testing.T) {
	repo := &mockReferenceRepo{resource: models.ReferenceResource{Name: "strand", Table: "strands", Path: "strands", HasTrack: true}}
	svc := NewReferenceService(repo, nil, nil, nil)

	trackID := int64(3)
	entry, err := svc.Create(context.Background(), models.ReferenceEntryRequest{Name: "STEM", TrackID: &trackID})
	require.NoError(t, err)
	require.NotNil(t, entry.TrackID)
	assert.Equal(t, trackID, *entry.TrackID)
}

func TestReferenceServiceUpdateExcludesSelfFromDuplicateCheck(t *testing.T) {
	repo := &mockReferenceRepo{
		resource: models.ReferenceResource{Name: "school", Table: "schools", Path: "schools"},
		byID:     &models.ReferenceEntry{ID: 5, Name: "Old Name"},
	}
	svc := NewReferenceService(repo, nil, nil, nil)

	entry, err := svc.Update(context.Background(), 5, models.ReferenceEntryRequest{Name: "New Name"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), repo.lastExclude)
	assert.Equal(t, int64(5), entry.ID)
	assert.Equal(t, "New Name", repo.updated.Name)
}

func TestReferenceServiceDeleteMissingIs404(t *testing.T) {
	repo := &mockReferenceRepo{
		resource: models.ReferenceResource{Name: "school", Table: "schools", Path: "schools"},
		findErr:  sql.ErrNoRows,
	}
	svc := NewReferenceService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.deletedID)
}

func TestReferenceServiceDeleteTrackInUse(t *testing.T) {
	repo := &mockReferenceRepo{
		resource:    models.ReferenceResource{Name: "track", Table: "tracks", Path: "tracks"},
		byID:        &models.ReferenceEntry{ID: 4, Name: "Academic"},
		strandCount: 2,
	}
	svc := NewReferenceService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), 4)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.deletedID)
}

func TestReferenceServiceDeleteUnreferencedTrack(t *testing.T) {
	repo := &mockReferenceRepo{
		resource: models.ReferenceResource{Name: "track", Table: "tracks", Path: "tracks"},
		byID:     &models.ReferenceEntry{ID: 4, Name: "Academic"},
	}
	cache := &mockCache{}
	svc := NewReferenceService(repo, cache, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), 4))
	assert.Equal(t, int64(4), repo.deletedID)
	assert.NotEmpty(t, cache.deletedPatterns)
}

func TestReferenceServiceListEmptyPage(t *testing.T) {
	repo := &mockReferenceRepo{
		resource: models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"},
		total:    3,
	}
	svc := NewReferenceService(repo, nil, nil, nil)

	entries, pagination, err := svc.List(context.Background(), models.ReferenceFilter{Page: 10, PageSize: 10})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Equal(t, 3, pagination.TotalCount)
	assert.Equal(t, 10, pagination.Page)
}
