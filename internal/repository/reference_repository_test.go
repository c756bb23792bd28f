package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrms-portal/lrms-api/internal/models"
)

func newReferenceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func trackResource() models.ReferenceResource {
	return models.ReferenceResource{Name: "track", Table: "tracks", Path: "tracks"}
}

func strandResource() models.ReferenceResource {
	return models.ReferenceResource{Name: "strand", Table: "strands", Path: "strands", HasTrack: true}
}

func TestReferenceRepositoryList(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db, trackResource())

	rows := sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
		AddRow(int64(1), "Academic", "", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, created_at, updated_at FROM tracks WHERE 1=1 ORDER BY name ASC LIMIT 10 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tracks WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ReferenceFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryListWithSearchAndTrack(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db, strandResource())

	trackID := int64(4)
	rows := sqlmock.NewRows([]string{"id", "name", "description", "track_id", "created_at", "updated_at"}).
		AddRow(int64(2), "STEM", "", trackID, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, track_id, created_at, updated_at FROM strands WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(description) LIKE $1) AND track_id = $2 ORDER BY name ASC LIMIT 10 OFFSET 0")).
		WithArgs("%stem%", trackID).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM strands WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(description) LIKE $1) AND track_id = $2")).
		WithArgs("%stem%", trackID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ReferenceFilter{Search: "STEM", TrackID: &trackID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryCreateReturningID(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db, trackResource())

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tracks (name, description, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id")).
		WithArgs("Academic", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	entry := &models.ReferenceEntry{Name: "Academic"}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.Equal(t, int64(7), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryCreateStrandWithTrack(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db, strandResource())

	trackID := int64(3)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO strands (name, description, track_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id")).
		WithArgs("ABM", "", trackID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	entry := &models.ReferenceEntry{Name: "ABM", TrackID: &trackID}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.Equal(t, int64(11), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db, trackResource())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM tracks WHERE LOWER(name) = LOWER($1) LIMIT 1")).
		WithArgs("Academic").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "Academic", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM tracks WHERE LOWER(name) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("Academic", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.ExistsByName(context.Background(), "Academic", 5)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryDeleteAndCount(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db, trackResource())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM strands WHERE track_id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountStrandsByTrack(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tracks WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}
