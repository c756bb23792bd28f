package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lrms-portal/lrms-api/internal/models"
)

// MaterialRepository handles persistence for the materials catalog.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository creates a new repository instance.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

const materialColumns = "id, title, description, author, type_name, grade_level_name, learning_area_name, subject_type_name, track_name, strand_name, component_name, file_name, downloads, views, rating, uploaded_at, updated_at"

// List returns materials matching the filter with the total match count.
// Search is a case-insensitive substring over title, description and author;
// classification filters are exact matches combined with AND.
func (r *MaterialRepository) List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, int, error) {
	base := "FROM materials WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d OR LOWER(author) LIKE $%d)", n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	exact := []struct {
		column string
		value  string
	}{
		{"type_name", filter.Type},
		{"grade_level_name", filter.GradeLevel},
		{"learning_area_name", filter.LearningArea},
		{"subject_type_name", filter.SubjectType},
		{"track_name", filter.Track},
		{"strand_name", filter.Strand},
		{"component_name", filter.Component},
	}
	for _, f := range exact {
		if f.value == "" {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", f.column, len(args)+1))
		args = append(args, f.value)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"title":       true,
		"author":      true,
		"downloads":   true,
		"views":       true,
		"rating":      true,
		"uploaded_at": true,
		"updated_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "uploaded_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", materialColumns, base, sortBy, order, size, offset)
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list materials: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count materials: %w", err)
	}

	return materials, total, nil
}

// FindByID returns a material by id.
func (r *MaterialRepository) FindByID(ctx context.Context, id int64) (*models.Material, error) {
	query := fmt.Sprintf("SELECT %s FROM materials WHERE id = $1", materialColumns)
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// Create persists a new material row and fills the server-assigned id.
func (r *MaterialRepository) Create(ctx context.Context, m *models.Material) error {
	now := time.Now().UTC()
	if m.UploadedAt.IsZero() {
		m.UploadedAt = now
	}
	m.UpdatedAt = now

	const query = `INSERT INTO materials
		(title, description, author, type_name, grade_level_name, learning_area_name, subject_type_name, track_name, strand_name, component_name, file_name, downloads, views, rating, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	if err := r.db.GetContext(ctx, &m.ID, query,
		m.Title, m.Description, m.Author,
		m.TypeName, m.GradeLevelName, m.LearningAreaName, m.SubjectTypeName,
		m.TrackName, m.StrandName, m.ComponentName,
		m.FileName, m.Downloads, m.Views, m.Rating,
		m.UploadedAt, m.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// SetFileName records the stored file path for a material.
func (r *MaterialRepository) SetFileName(ctx context.Context, id int64, fileName string) error {
	const query = `UPDATE materials SET file_name = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, fileName, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set material file: %w", err)
	}
	return nil
}

// IncrementViews bumps the view counter.
func (r *MaterialRepository) IncrementViews(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE materials SET views = views + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// IncrementDownloads bumps the download counter.
func (r *MaterialRepository) IncrementDownloads(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE materials SET downloads = downloads + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	return nil
}

// DistinctLearningAreas returns the distinct learning-area labels among
// materials of the given subject type. Used to build the core/applied/
// specialized dropdown groups.
func (r *MaterialRepository) DistinctLearningAreas(ctx context.Context, subjectType string) ([]string, error) {
	const query = `SELECT DISTINCT learning_area_name FROM materials WHERE subject_type_name = $1 AND learning_area_name <> '' ORDER BY learning_area_name ASC`
	var names []string
	if err := r.db.SelectContext(ctx, &names, query, subjectType); err != nil {
		return nil, fmt.Errorf("distinct learning areas: %w", err)
	}
	return names, nil
}
