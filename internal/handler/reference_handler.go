package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lrms-portal/lrms-api/internal/models"
	"github.com/lrms-portal/lrms-api/internal/service"
	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
	"github.com/lrms-portal/lrms-api/pkg/response"
)

// ReferenceHandler serves the generic CRUD endpoints for one reference
// collection. One instance per collection, all sharing the same shape:
//
//	GET    /lrms/<path>          list with search and pagination
//	GET    /lrms/<path>/:id      fetch one
//	POST   /lrms/<path>          create
//	PUT    /lrms/<path>/:id      update
//	DELETE /lrms/<path>/:id      delete
type ReferenceHandler struct {
	service *service.ReferenceService
}

// NewReferenceHandler creates a handler bound to one reference service.
func NewReferenceHandler(svc *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{service: svc}
}

// Register mounts the CRUD routes on the group, applying the given
// middlewares to the write endpoints.
func (h *ReferenceHandler) Register(group *gin.RouterGroup, write ...gin.HandlerFunc) {
	path := "/" + h.service.Resource().Path
	group.GET(path, h.List)
	group.GET(path+"/:id", h.Get)
	group.POST(path, append(write, h.Create)...)
	group.PUT(path+"/:id", append(write, h.Update)...)
	group.DELETE(path+"/:id", append(write, h.Delete)...)
}

// List godoc
// @Summary List reference entries
// @Description List entries of one reference collection with search and pagination
// @Tags References
// @Produce json
// @Param search query string false "Substring match on name and description"
// @Param trackId query int false "Filter strands by track"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/{collection} [get]
func (h *ReferenceHandler) List(c *gin.Context) {
	filter := models.ReferenceFilter{
		Search:    c.Query("search"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 10),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := c.Query("trackId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "trackId must be numeric"))
			return
		}
		filter.TrackID = &id
	}

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get returns a single entry by id.
func (h *ReferenceHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Create reference entry
// @Tags References
// @Accept json
// @Produce json
// @Param payload body models.ReferenceEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/{collection} [post]
func (h *ReferenceHandler) Create(c *gin.Context) {
	var req models.ReferenceEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry payload"))
		return
	}

	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, entry)
}

// Update modifies an entry.
func (h *ReferenceHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.ReferenceEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry payload"))
		return
	}

	entry, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete removes an entry. Missing ids yield 404; tracks still referenced by
// strands yield 409.
func (h *ReferenceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, h.service.Resource().Name+" deleted")
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
