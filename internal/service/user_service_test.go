package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lrms-portal/lrms-api/internal/models"
	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail        *models.User
	byID           *models.User
	findByEmailErr error
	findByIDErr    error
	users          []models.User
	total          int
	created        *models.User
	updated        *models.User
	profileUpsert  *models.UserProfile
	activeSet      map[string]bool
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.byEmail, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	return m.byID, nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return m.users, m.total, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "generated-id"
	m.created = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockUserRepo) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	m.profileUpsert = profile
	return nil
}

func (m *mockUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	if m.activeSet == nil {
		m.activeSet = make(map[string]bool)
	}
	m.activeSet[id] = active
	return nil
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	repo := &mockUserRepo{findByEmailErr: sql.ErrNoRows}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "Teacher@DepEd.gov.ph",
		Password: "secret123",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher@deped.gov.ph", user.Email)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
}

func TestUserServiceCreateWithProfile(t *testing.T) {
	repo := &mockUserRepo{findByEmailErr: sql.ErrNoRows}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "teacher@deped.gov.ph",
		Password: "secret123",
		Role:     models.RoleTeacher,
		Profile:  &models.UserProfileRequest{FirstName: " Ana ", LastName: "Reyes"},
	})
	require.NoError(t, err)
	require.NotNil(t, user.Profile)
	assert.Equal(t, "Ana", user.Profile.FirstName)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{byEmail: &models.User{ID: "u1", Email: "teacher@deped.gov.ph"}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "teacher@deped.gov.ph",
		Password: "secret123",
		Role:     models.RoleTeacher,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestUserServiceCreateRejectsUnknownRole(t *testing.T) {
	repo := &mockUserRepo{findByEmailErr: sql.ErrNoRows}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "teacher@deped.gov.ph",
		Password: "secret123",
		Role:     "Superuser",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateRejectsShortPassword(t *testing.T) {
	repo := &mockUserRepo{findByEmailErr: sql.ErrNoRows}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "teacher@deped.gov.ph",
		Password: "short",
		Role:     models.RoleTeacher,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdatePartialFields(t *testing.T) {
	repo := &mockUserRepo{
		byID:           &models.User{ID: "u1", Email: "old@deped.gov.ph", Role: models.RoleTeacher, Active: true},
		findByEmailErr: sql.ErrNoRows,
	}
	svc := NewUserService(repo, nil, nil)

	newRole := models.RoleEPS
	user, err := svc.Update(context.Background(), "u1", models.UpdateUserRequest{Role: &newRole})
	require.NoError(t, err)
	assert.Equal(t, models.RoleEPS, user.Role)
	assert.Equal(t, "old@deped.gov.ph", user.Email)
	require.NotNil(t, repo.updated)
}

func TestUserServiceUpdateMissingUser(t *testing.T) {
	repo := &mockUserRepo{findByIDErr: sql.ErrNoRows}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "nope", models.UpdateUserRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	repo := &mockUserRepo{byID: &models.User{ID: "u1", Email: "teacher@deped.gov.ph"}}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.UpdateProfile(context.Background(), "u1", models.UserProfileRequest{
		FirstName: "Ana",
		LastName:  "Reyes",
	})
	require.NoError(t, err)
	require.NotNil(t, repo.profileUpsert)
	assert.Equal(t, "u1", repo.profileUpsert.UserID)
	assert.Equal(t, "Ana Reyes", user.Profile.FullName())
}

func TestUserServiceDeactivateIsIdempotent(t *testing.T) {
	repo := &mockUserRepo{byID: &models.User{ID: "u1", Active: false}}
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "u1"))
	assert.Empty(t, repo.activeSet)
}

func TestUserServiceDeactivateActiveUser(t *testing.T) {
	repo := &mockUserRepo{byID: &models.User{ID: "u1", Active: true}}
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "u1"))
	assert.False(t, repo.activeSet["u1"])
}

func TestUserServiceListPagination(t *testing.T) {
	repo := &mockUserRepo{users: []models.User{{ID: "u1"}}, total: 25}
	svc := NewUserService(repo, nil, nil)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 25, pagination.TotalCount)
}
