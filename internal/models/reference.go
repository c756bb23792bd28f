package models

import "time"

// ReferenceEntry is a named reference record (office, school, position, grade
// level, learning area, track, strand, subject type, component, material
// type). TrackID is only populated for strands; it is a weak reference and is
// not validated against live tracks on write.
type ReferenceEntry struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	TrackID     *int64    `db:"track_id" json:"trackId,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// ReferenceResource describes one reference collection served by the generic
// CRUD module.
type ReferenceResource struct {
	// Singular, for log and error messages.
	Name string
	// Postgres table. Must come from the fixed list below, never user input.
	Table string
	// URL segment under /lrms.
	Path string
	// Strands carry a track reference.
	HasTrack bool
}

// ReferenceResources enumerates every reference collection the portal manages.
var ReferenceResources = []ReferenceResource{
	{Name: "office", Table: "offices", Path: "offices"},
	{Name: "school", Table: "schools", Path: "schools"},
	{Name: "position", Table: "positions", Path: "positions"},
	{Name: "grade level", Table: "grade_levels", Path: "grade-levels"},
	{Name: "learning area", Table: "learning_areas", Path: "learning-areas"},
	{Name: "track", Table: "tracks", Path: "tracks"},
	{Name: "strand", Table: "strands", Path: "strands", HasTrack: true},
	{Name: "subject type", Table: "subject_types", Path: "subject-types"},
	{Name: "component", Table: "components", Path: "components"},
	{Name: "material type", Table: "material_types", Path: "material-types"},
}

// ReferenceEntryRequest is the create/update payload for a reference entry.
type ReferenceEntryRequest struct {
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"max=500"`
	TrackID     *int64 `json:"trackId" validate:"omitempty,gt=0"`
}

// ReferenceFilter captures supported filters for listing reference entries.
type ReferenceFilter struct {
	Search    string
	TrackID   *int64
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
