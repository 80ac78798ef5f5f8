package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

// AttendanceHandler exposes attendance recording endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	metrics    *service.MetricsService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService, metrics *service.MetricsService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, metrics: metrics}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param lesson_id query string false "Filter by lesson"
// @Param student_id query string false "Filter by student"
// @Param group_id query string false "Filter by group"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
		LessonID:  c.Query("lesson_id"),
		StudentID: c.Query("student_id"),
		GroupID:   c.Query("group_id"),
	}
	if v := c.Query("date_from"); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_from must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &date
	}
	if v := c.Query("date_to"); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_to must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = &date
	}
	if v := c.Query("status"); v != "" {
		status := models.AttendanceStatus(v)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be present, absent, late or excused"))
			return
		}
		filter.Status = &status
	}

	records, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// LessonRoster godoc
// @Summary Lesson roster with marks for one date
// @Tags Attendance
// @Produce json
// @Param lessonId path string true "Lesson ID"
// @Param date query string true "Date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/lesson/{lessonId} [get]
func (h *AttendanceHandler) LessonRoster(c *gin.Context) {
	roster, err := h.attendance.LessonRoster(c.Request.Context(), c.Param("lessonId"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster)
}

// Save godoc
// @Summary Record a single attendance mark
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SaveAttendanceRequest true "Attendance mark"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [post]
func (h *AttendanceHandler) Save(c *gin.Context) {
	var req service.SaveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CountAttendanceSaved(1)
	}
	response.JSON(c, http.StatusOK, record)
}

// BulkSave godoc
// @Summary Record one lesson/date submission atomically
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkAttendanceRequest true "Submission"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkSave(c *gin.Context) {
	var req service.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.attendance.BulkSave(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CountAttendanceSaved(len(records))
	}
	response.JSON(c, http.StatusOK, records)
}

// Update godoc
// @Summary Update an attendance record
// @Tags Attendance
// @Accept json
// @Param id path string true "Record ID"
// @Param payload body service.UpdateAttendanceRequest true "Status and notes"
// @Success 204
// @Security BearerAuth
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.Update(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Param id path string true "Record ID"
// @Success 204
// @Security BearerAuth
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StudentStats godoc
// @Summary Attendance statistics for one student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/student/{id}/stats [get]
func (h *AttendanceHandler) StudentStats(c *gin.Context) {
	rng, ok := dateRangeFromQuery(c)
	if !ok {
		return
	}
	stats, err := h.attendance.StudentStats(c.Request.Context(), c.Param("id"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

func dateRangeFromQuery(c *gin.Context) (models.DateRange, bool) {
	var rng models.DateRange
	if v := c.Query("date_from"); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_from must be YYYY-MM-DD"))
			return rng, false
		}
		rng.From = &date
	}
	if v := c.Query("date_to"); v != "" {
		date, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date_to must be YYYY-MM-DD"))
			return rng, false
		}
		rng.To = &date
	}
	return rng, true
}
