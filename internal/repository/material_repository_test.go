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

func newMaterialRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func materialRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "author", "type_name", "grade_level_name",
		"learning_area_name", "subject_type_name", "track_name", "strand_name",
		"component_name", "file_name", "downloads", "views", "rating", "uploaded_at", "updated_at",
	})
}

func TestMaterialRepositoryList(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	rows := materialRows().
		AddRow(int64(1), "Algebra Basics", "", "J. Cruz", "Module", "Grade 7", "Mathematics", "Core", "", "", "", nil, int64(3), int64(10), 4.5, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, title, .* FROM materials WHERE 1=1 ORDER BY uploaded_at DESC LIMIT 10 OFFSET 0").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM materials WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.MaterialFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectQuery(`SELECT id, title, .* FROM materials WHERE 1=1 AND \(LOWER\(title\) LIKE \$1 OR LOWER\(description\) LIKE \$1 OR LOWER\(author\) LIKE \$1\) AND grade_level_name = \$2 AND track_name = \$3`).
		WithArgs("%algebra%", "Grade 7", "Academic").
		WillReturnRows(materialRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM materials WHERE 1=1`).
		WithArgs("%algebra%", "Grade 7", "Academic").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.MaterialFilter{
		Search:     "Algebra",
		GradeLevel: "Grade 7",
		Track:      "Academic",
	})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryCreateReturningID(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectQuery("INSERT INTO materials").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	m := &models.Material{Title: "Algebra Basics"}
	require.NoError(t, repo.Create(context.Background(), m))
	assert.Equal(t, int64(42), m.ID)
	assert.False(t, m.UploadedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryCounters(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE materials SET views = views + 1 WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE materials SET downloads = downloads + 1 WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementViews(context.Background(), 5))
	require.NoError(t, repo.IncrementDownloads(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositorySetFileName(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE materials SET file_name = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("materials/5/doc.pdf", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetFileName(context.Background(), 5, "materials/5/doc.pdf"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryDistinctLearningAreas(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT learning_area_name FROM materials WHERE subject_type_name = $1 AND learning_area_name <> '' ORDER BY learning_area_name ASC")).
		WithArgs("Core").
		WillReturnRows(sqlmock.NewRows([]string{"learning_area_name"}).AddRow("English").AddRow("Mathematics"))

	names, err := repo.DistinctLearningAreas(context.Background(), "Core")
	require.NoError(t, err)
	assert.Equal(t, []string{"English", "Mathematics"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}
