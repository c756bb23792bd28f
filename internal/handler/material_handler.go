package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/lrms-portal/lrms-api/internal/models"
	"github.com/lrms-portal/lrms-api/internal/service"
	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
	"github.com/lrms-portal/lrms-api/pkg/response"
)

// MaterialHandler serves the materials catalog endpoints.
type MaterialHandler struct {
	service *service.MaterialService
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewMaterialHandler creates a new handler.
func NewMaterialHandler(svc *service.MaterialService, exports *service.ExportService, metrics *service.MetricsService) *MaterialHandler {
	return &MaterialHandler{service: svc, exports: exports, metrics: metrics}
}

// List godoc
// @Summary List materials
// @Description Browse the catalog with search, classification filters and pagination
// @Tags Materials
// @Produce json
// @Param search query string false "Substring match on title, description and author"
// @Param type query string false "Material type"
// @Param gradeLevel query string false "Grade level"
// @Param learningArea query string false "Learning area"
// @Param subjectType query string false "Subject type"
// @Param track query string false "Track"
// @Param strand query string false "Strand"
// @Param component query string false "Component"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/getAllMaterials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	materials, pagination, err := h.service.List(c.Request.Context(), materialFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, materials, pagination)
}

// Get returns a single material by id.
func (h *MaterialHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	material, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, material, nil)
}

// BulkUpload godoc
// @Summary Upload material metadata
// @Description Ingest an Excel workbook of material metadata rows
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Excel workbook (.xlsx)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/upload-materials [post]
func (h *MaterialHandler) BulkUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.service.BulkUpload(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordUpload("metadata")
	response.JSON(c, http.StatusOK, result, nil)
}

// UploadFile godoc
// @Summary Attach material file
// @Description Store the uploaded document and link it to the material
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Material id"
// @Param file formData file true "Document"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/upload-material-file/{id} [post]
func (h *MaterialHandler) UploadFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	contentType := fileHeader.Header.Get("Content-Type")
	material, err := h.service.AttachFile(c.Request.Context(), id, fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordUpload("file")
	response.JSON(c, http.StatusOK, material, nil)
}

// View godoc
// @Summary View material file
// @Description Stream the attached file for inline display
// @Tags Materials
// @Produce octet-stream
// @Param id path int true "Material id"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/view-material/{id} [get]
func (h *MaterialHandler) View(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	material, file, err := h.service.View(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	h.stream(c, material, file, "inline")
}

// Download godoc
// @Summary Download material file
// @Description Stream the attached file as an attachment
// @Tags Materials
// @Produce octet-stream
// @Param id path int true "Material id"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/download-material/{id} [get]
func (h *MaterialHandler) Download(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	material, file, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	h.metrics.RecordDownload()
	h.stream(c, material, file, "attachment")
}

// CreateDownloadLink godoc
// @Summary Create shared download link
// @Description Issue an expiring signed link for the material file
// @Tags Materials
// @Produce json
// @Param id path int true "Material id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/materials/{id}/download-link [post]
func (h *MaterialHandler) CreateDownloadLink(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	link, err := h.service.CreateDownloadLink(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, link, nil)
}

// SignedDownload godoc
// @Summary Download via shared link
// @Description Resolve a signed token and stream the referenced file. No authentication required.
// @Tags Materials
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lrms/files/{token} [get]
func (h *MaterialHandler) SignedDownload(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	material, file, err := h.service.ResolveDownloadToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	h.metrics.RecordDownload()
	h.stream(c, material, file, "attachment")
}

// FilterOptions godoc
// @Summary Filter options
// @Description Option lists for the catalog filter dropdowns
// @Tags Materials
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/filter-options [get]
func (h *MaterialHandler) FilterOptions(c *gin.Context) {
	options, err := h.service.FilterOptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, options, nil)
}

// Export godoc
// @Summary Export catalog
// @Description Render the filtered catalog as a CSV or PDF download
// @Tags Materials
// @Produce octet-stream
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /lrms/materials/export [get]
func (h *MaterialHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))

	result, err := h.exports.Export(c.Request.Context(), materialFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func (h *MaterialHandler) stream(c *gin.Context, material *models.Material, file io.Reader, disposition string) {
	name := material.Title
	ext := ""
	if material.FileName != nil {
		ext = filepath.Ext(*material.FileName)
	}
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, name+ext),
	}
	c.DataFromReader(http.StatusOK, -1, contentType, file, headers)
}

func materialFilterFromQuery(c *gin.Context) models.MaterialFilter {
	return models.MaterialFilter{
		Search:       c.Query("search"),
		Type:         c.Query("type"),
		GradeLevel:   c.Query("gradeLevel"),
		LearningArea: c.Query("learningArea"),
		SubjectType:  c.Query("subjectType"),
		Track:        c.Query("track"),
		Strand:       c.Query("strand"),
		Component:    c.Query("component"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 10),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}
}
