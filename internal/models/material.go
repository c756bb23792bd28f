package models

import "time"

// Material represents a learning material in the catalog. Classification
// fields are denormalized label strings, matching what the portal renders and
// filters on.
type Material struct {
	ID               int64     `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	Description      string    `db:"description" json:"description,omitempty"`
	Author           string    `db:"author" json:"author,omitempty"`
	TypeName         string    `db:"type_name" json:"typeName,omitempty"`
	GradeLevelName   string    `db:"grade_level_name" json:"gradeLevelName,omitempty"`
	LearningAreaName string    `db:"learning_area_name" json:"learningAreaName,omitempty"`
	SubjectTypeName  string    `db:"subject_type_name" json:"subjectTypeName,omitempty"`
	TrackName        string    `db:"track_name" json:"trackName,omitempty"`
	StrandName       string    `db:"strand_name" json:"strandName,omitempty"`
	ComponentName    string    `db:"component_name" json:"componentName,omitempty"`
	FileName         *string   `db:"file_name" json:"fileName"`
	Downloads        int64     `db:"downloads" json:"downloads"`
	Views            int64     `db:"views" json:"views"`
	Rating           float64   `db:"rating" json:"rating"`
	UploadedAt       time.Time `db:"uploaded_at" json:"uploadedAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// HasFile reports whether a file is attached; view and download are gated on it.
func (m *Material) HasFile() bool {
	return m.FileName != nil && *m.FileName != ""
}

// MaterialFilter captures catalog filters. Search is a case-insensitive
// substring match over title, description and author; the classification
// filters are exact matches combined with AND, empty meaning unrestricted.
type MaterialFilter struct {
	Search       string
	Type         string
	GradeLevel   string
	LearningArea string
	SubjectType  string
	Track        string
	Strand       string
	Component    string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// FilterOptions is the bag of label lists the portal uses to populate its
// filter dropdowns.
type FilterOptions struct {
	LearningAreas       []string `json:"learningAreas"`
	Components          []string `json:"components"`
	CoreSubjects        []string `json:"coreSubjects"`
	AppliedSubjects     []string `json:"appliedSubjects"`
	SpecializedSubjects []string `json:"specializedSubjects"`
	Tracks              []string `json:"tracks"`
	Strands             []string `json:"strands"`
	Types               []string `json:"types"`
	GradeLevels         []string `json:"gradeLevels"`
	SubjectTypes        []string `json:"subjectTypes"`
}

// BulkUploadResult reports the outcome of an Excel metadata upload.
type BulkUploadResult struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// DownloadLink is an expiring shared link for a material file.
type DownloadLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
