package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lrms-portal/lrms-api/internal/models"
)

// ReferenceRepository handles persistence for one reference table. A single
// implementation serves all ten reference collections; the descriptor decides
// the table and whether rows carry a track reference. Table names come from
// the fixed descriptor list, never from request input.
type ReferenceRepository struct {
	db  *sqlx.DB
	res models.ReferenceResource
}

// NewReferenceRepository creates a repository bound to one resource.
func NewReferenceRepository(db *sqlx.DB, res models.ReferenceResource) *ReferenceRepository {
	return &ReferenceRepository{db: db, res: res}
}

// Resource exposes the bound descriptor.
func (r *ReferenceRepository) Resource() models.ReferenceResource {
	return r.res
}

func (r *ReferenceRepository) columns() string {
	cols := "id, name, description, created_at, updated_at"
	if r.res.HasTrack {
		cols = "id, name, description, track_id, created_at, updated_at"
	}
	return cols
}

// List returns entries matching the filter with the total match count.
func (r *ReferenceRepository) List(ctx context.Context, filter models.ReferenceFilter) ([]models.ReferenceEntry, int, error) {
	base := fmt.Sprintf("FROM %s WHERE 1=1", r.res.Table)
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if r.res.HasTrack && filter.TrackID != nil {
		conditions = append(conditions, fmt.Sprintf("track_id = $%d", len(args)+1))
		args = append(args, *filter.TrackID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", r.columns(), base, sortBy, order, size, offset)
	var entries []models.ReferenceEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.res.Table, err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.res.Table, err)
	}

	return entries, total, nil
}

// Names returns every entry name ordered alphabetically (dropdown options).
func (r *ReferenceRepository) Names(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT name FROM %s ORDER BY name ASC", r.res.Table)
	var names []string
	if err := r.db.SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("list %s names: %w", r.res.Table, err)
	}
	return names, nil
}

// FindByID returns an entry by id.
func (r *ReferenceRepository) FindByID(ctx context.Context, id int64) (*models.ReferenceEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", r.columns(), r.res.Table)
	var entry models.ReferenceEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ExistsByName checks name uniqueness case-insensitively.
func (r *ReferenceRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE LOWER(name) = LOWER($1)", r.res.Table)
	args := []interface{}{name}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check %s name: %w", r.res.Table, err)
	}
	return true, nil
}

// Create persists a new entry and fills the server-assigned id.
func (r *ReferenceRepository) Create(ctx context.Context, entry *models.ReferenceEntry) error {
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	var query string
	var args []interface{}
	if r.res.HasTrack {
		query = fmt.Sprintf("INSERT INTO %s (name, description, track_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id", r.res.Table)
		args = []interface{}{entry.Name, entry.Description, entry.TrackID, entry.CreatedAt, entry.UpdatedAt}
	} else {
		query = fmt.Sprintf("INSERT INTO %s (name, description, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id", r.res.Table)
		args = []interface{}{entry.Name, entry.Description, entry.CreatedAt, entry.UpdatedAt}
	}

	if err := r.db.GetContext(ctx, &entry.ID, query, args...); err != nil {
		return fmt.Errorf("create %s: %w", r.res.Name, err)
	}
	return nil
}

// Update modifies an entry.
func (r *ReferenceRepository) Update(ctx context.Context, entry *models.ReferenceEntry) error {
	entry.UpdatedAt = time.Now().UTC()

	var query string
	var args []interface{}
	if r.res.HasTrack {
		query = fmt.Sprintf("UPDATE %s SET name = $1, description = $2, track_id = $3, updated_at = $4 WHERE id = $5", r.res.Table)
		args = []interface{}{entry.Name, entry.Description, entry.TrackID, entry.UpdatedAt, entry.ID}
	} else {
		query = fmt.Sprintf("UPDATE %s SET name = $1, description = $2, updated_at = $3 WHERE id = $4", r.res.Table)
		args = []interface{}{entry.Name, entry.Description, entry.UpdatedAt, entry.ID}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", r.res.Name, err)
	}
	return nil
}

// Delete removes an entry.
func (r *ReferenceRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.res.Table)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete %s: %w", r.res.Name, err)
	}
	return nil
}

// CountStrandsByTrack returns the number of strands referencing the track.
// Used as a delete guard on the tracks resource.
func (r *ReferenceRepository) CountStrandsByTrack(ctx context.Context, trackID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM strands WHERE track_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, trackID); err != nil {
		return 0, fmt.Errorf("count strands by track: %w", err)
	}
	return count, nil
}
