package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

// ImportHandler exposes the schedule import endpoints.
type ImportHandler struct {
	imports     *service.ImportService
	metrics     *service.MetricsService
	maxFileSize int64
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports *service.ImportService, metrics *service.MetricsService, maxFileSize int64) *ImportHandler {
	return &ImportHandler{imports: imports, metrics: metrics, maxFileSize: maxFileSize}
}

// Validate godoc
// @Summary Preview a schedule import without writing
// @Tags Import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "XLSX or CSV file"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /import/schedule/validate [post]
func (h *ImportHandler) Validate(c *gin.Context) {
	rows, ok := h.parseUpload(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.imports.Validate(rows))
}

// Import godoc
// @Summary Import a schedule spreadsheet
// @Tags Import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "XLSX or CSV file"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /import/schedule [post]
func (h *ImportHandler) Import(c *gin.Context) {
	rows, ok := h.parseUpload(c)
	if !ok {
		return
	}
	result, err := h.imports.Import(c.Request.Context(), rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CountImportRows(result.Imported, result.Failed)
	}
	response.JSON(c, http.StatusOK, result)
}

func (h *ImportHandler) parseUpload(c *gin.Context) ([]models.ImportRow, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFileUpload, "file field is required"))
		return nil, false
	}
	if header.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrFileUpload, "file exceeds the size limit"))
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFileUpload, ""))
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFileUpload, ""))
		return nil, false
	}
	if int64(len(data)) > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrFileUpload, "file exceeds the size limit"))
		return nil, false
	}

	rows, err := h.imports.ParseFile(header.Filename, data)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return rows, true
}
