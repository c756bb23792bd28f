package models

import "time"

// UserRole represents the portal roles used for access control.
type UserRole string

const (
	RoleAdministrative UserRole = "Administrative"
	RoleTeacher        UserRole = "Teacher"
	RoleEPS            UserRole = "EPS"
	RoleLRCoordinator  UserRole = "LR_coor"
	RoleNonTeaching    UserRole = "Non_teaching"
)

// ValidRole reports whether the given role is one of the portal roles.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleAdministrative, RoleTeacher, RoleEPS, RoleLRCoordinator, RoleNonTeaching:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
// JSON field names follow the portal contract (camelCase).
type User struct {
	ID               string       `db:"id" json:"id"`
	Email            string       `db:"email" json:"email"`
	PasswordHash     string       `db:"password_hash" json:"-"`
	Role             UserRole     `db:"role" json:"role"`
	Active           bool         `db:"active" json:"isActive"`
	TwoFactorEnabled bool         `db:"two_factor_enabled" json:"twoFactorEnabled"`
	LastLogin        *time.Time   `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updatedAt"`
	Profile          *UserProfile `db:"-" json:"profile,omitempty"`
}

// UserProfile holds the personal record attached to a user. The legacy data
// model allowed several rows per user; this service keeps at most one.
type UserProfile struct {
	UserID       string     `db:"user_id" json:"-"`
	FirstName    string     `db:"first_name" json:"firstName"`
	MiddleName   string     `db:"middle_name" json:"middleName,omitempty"`
	LastName     string     `db:"last_name" json:"lastName"`
	EmailAddress string     `db:"email_address" json:"emailAddress"`
	Birthdate    *time.Time `db:"birthdate" json:"birthdate,omitempty"`
	EmployeeID   string     `db:"employee_id" json:"employeeId,omitempty"`
	PhoneNumber  string     `db:"phone_number" json:"phoneNumber,omitempty"`
	Address      string     `db:"address" json:"address,omitempty"`
	UpdatedAt    time.Time  `db:"updated_at" json:"-"`
}

// Age derives the profile age in whole years at the given reference time.
func (p *UserProfile) Age(now time.Time) int {
	if p == nil || p.Birthdate == nil {
		return 0
	}
	years := now.Year() - p.Birthdate.Year()
	anniversary := p.Birthdate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// FullName joins the profile name parts, skipping blanks.
func (p *UserProfile) FullName() string {
	if p == nil {
		return ""
	}
	name := p.FirstName
	if p.MiddleName != "" {
		name += " " + p.MiddleName
	}
	if p.LastName != "" {
		name += " " + p.LastName
	}
	return name
}

// CreateUserRequest is the admin payload for creating an account.
type CreateUserRequest struct {
	Email            string                `json:"email" validate:"required,email"`
	Password         string                `json:"password" validate:"required,min=8"`
	Role             UserRole              `json:"role" validate:"required"`
	TwoFactorEnabled bool                  `json:"twoFactorEnabled"`
	Profile          *UserProfileRequest   `json:"profile" validate:"omitempty"`
}

// UpdateUserRequest is the admin payload for modifying an account. Nil fields
// keep their current value.
type UpdateUserRequest struct {
	Email            *string   `json:"email" validate:"omitempty,email"`
	Role             *UserRole `json:"role" validate:"omitempty"`
	Active           *bool     `json:"isActive"`
	TwoFactorEnabled *bool     `json:"twoFactorEnabled"`
}

// UserProfileRequest is the payload for creating or replacing a profile.
type UserProfileRequest struct {
	FirstName    string     `json:"firstName" validate:"required,max=100"`
	MiddleName   string     `json:"middleName" validate:"max=100"`
	LastName     string     `json:"lastName" validate:"required,max=100"`
	EmailAddress string     `json:"emailAddress" validate:"omitempty,email"`
	Birthdate    *time.Time `json:"birthdate"`
	EmployeeID   string     `json:"employeeId" validate:"max=50"`
	PhoneNumber  string     `json:"phoneNumber" validate:"max=30"`
	Address      string     `json:"address" validate:"max=300"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
