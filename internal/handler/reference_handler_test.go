package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lrms-portal/lrms-api/internal/models"
	"github.com/lrms-portal/lrms-api/internal/service"
	"github.com/lrms-portal/lrms-api/pkg/response"
)

type referenceRepoStub struct {
	resource   models.ReferenceResource
	entries    []models.ReferenceEntry
	total      int
	byID       *models.ReferenceEntry
	nameExists bool
	deletedID  int64
}

func (s *referenceRepoStub) Resource() models.ReferenceResource { return s.resource }

func (s *referenceRepoStub) List(ctx context.Context, filter models.ReferenceFilter) ([]models.ReferenceEntry, int, error) {
	return s.entries, s.total, nil
}

func (s *referenceRepoStub) Names(ctx context.Context) ([]string, error) { return nil, nil }

func (s *referenceRepoStub) FindByID(ctx context.Context, id int64) (*models.ReferenceEntry, error) {
	if s.byID == nil {
		return nil, sql.ErrNoRows
	}
	return s.byID, nil
}

func (s *referenceRepoStub) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	return s.nameExists, nil
}

func (s *referenceRepoStub) Create(ctx context.Context, entry *models.ReferenceEntry) error {
	entry.ID = 1
	return nil
}

func (s *referenceRepoStub) Update(ctx context.Context, entry *models.ReferenceEntry) error {
	return nil
}

func (s *referenceRepoStub) Delete(ctx context.Context, id int64) error {
	s.deletedID = id
	return nil
}

func (s *referenceRepoStub) CountStrandsByTrack(ctx context.Context, trackID int64) (int, error) {
	return 0, nil
}

func newReferenceTestHandler(stub *referenceRepoStub) *ReferenceHandler {
	svc := service.NewReferenceService(stub, nil, nil, nil)
	return NewReferenceHandler(svc)
}

func TestReferenceHandlerListEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &referenceRepoStub{
		resource: models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"},
		entries:  []models.ReferenceEntry{{ID: 1, Name: "Curriculum Division"}},
		total:    1,
	}
	h := newReferenceTestHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/lrms/offices?page=1&page_size=10", nil)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestReferenceHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &referenceRepoStub{
		resource:   models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"},
		nameExists: true,
	}
	h := newReferenceTestHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/lrms/offices", strings.NewReader(`{"name":"Curriculum Division"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Message)
}

func TestReferenceHandlerCreateInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &referenceRepoStub{resource: models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"}}
	h := newReferenceTestHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/lrms/offices", strings.NewReader(`{broken`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReferenceHandlerDeleteMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &referenceRepoStub{resource: models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"}}
	h := newReferenceTestHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/lrms/offices/99", nil)
	c.Params = gin.Params{{Key: "id", Value: "99"}}

	h.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, stub.deletedID)
}

func TestReferenceHandlerBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &referenceRepoStub{resource: models.ReferenceResource{Name: "office", Table: "offices", Path: "offices"}}
	h := newReferenceTestHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/lrms/offices/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.Delete(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
