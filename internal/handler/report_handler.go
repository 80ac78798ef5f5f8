package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

// ReportHandler exposes statistics and export endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Attendance godoc
// @Summary Attendance journal with joined names
// @Tags Reports
// @Produce json
// @Param group_id query string false "Filter by group"
// @Param student_id query string false "Filter by student"
// @Param lesson_id query string false "Filter by lesson"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	filter := models.AttendanceFilter{
		GroupID:   c.Query("group_id"),
		StudentID: c.Query("student_id"),
		LessonID:  c.Query("lesson_id"),
	}
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	filter.DateFrom = rng.From
	filter.DateTo = rng.To

	records, err := h.reports.AttendanceJournal(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Overall godoc
// @Summary System-wide dashboard aggregate
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/stats/overall [get]
func (h *ReportHandler) Overall(c *gin.Context) {
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	stats, err := h.reports.OverallStats(c.Request.Context(), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Groups godoc
// @Summary Attendance aggregates per group
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/stats/groups [get]
func (h *ReportHandler) Groups(c *gin.Context) {
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	stats, err := h.reports.GroupsStats(c.Request.Context(), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Group godoc
// @Summary Attendance aggregate for one group
// @Tags Reports
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/stats/groups/{id} [get]
func (h *ReportHandler) Group(c *gin.Context) {
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	stats, err := h.reports.GroupStats(c.Request.Context(), c.Param("id"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Subjects godoc
// @Summary Attendance aggregates per subject
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/stats/subjects [get]
func (h *ReportHandler) Subjects(c *gin.Context) {
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	stats, err := h.reports.SubjectsStats(c.Request.Context(), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Subject godoc
// @Summary Attendance aggregate for one subject
// @Tags Reports
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/stats/subjects/{id} [get]
func (h *ReportHandler) Subject(c *gin.Context) {
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	stats, err := h.reports.SubjectStats(c.Request.Context(), c.Param("id"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Export godoc
// @Summary Export the attendance journal
// @Tags Reports
// @Produce octet-stream
// @Param format query string true "csv, xlsx or pdf"
// @Param group_id query string false "Filter by group"
// @Param student_id query string false "Filter by student"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	filter := models.AttendanceFilter{
		GroupID:   c.Query("group_id"),
		StudentID: c.Query("student_id"),
		LessonID:  c.Query("lesson_id"),
	}
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	filter.DateFrom = rng.From
	filter.DateTo = rng.To

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.reports.ExportAttendance(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.stream(c, file)
}

// ExportGroups godoc
// @Summary Export the per-group aggregate table
// @Tags Reports
// @Produce octet-stream
// @Param format query string true "csv, xlsx or pdf"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/export/groups [get]
func (h *ReportHandler) ExportGroups(c *gin.Context) {
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.reports.ExportGroupStats(c.Request.Context(), rng, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, file)
}

func (h *ReportHandler) stream(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("Content-Type", file.ContentType)
	c.Header("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
