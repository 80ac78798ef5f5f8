package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

// ScheduleHandler exposes schedule endpoints.
type ScheduleHandler struct {
	schedule *service.ScheduleService
	metrics  *service.MetricsService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedule *service.ScheduleService, metrics *service.MetricsService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule, metrics: metrics}
}

// List godoc
// @Summary List the recurring schedule
// @Tags Schedule
// @Produce json
// @Param week_type query string false "Parity cycle 0, 1 or 2; current parity when omitted"
// @Param all query bool false "Bypass parity filtering"
// @Param group_id query string false "Filter by group"
// @Param teacher_id query string false "Filter by teacher"
// @Param day_of_week query int false "Filter by ISO weekday 1-7"
// @Param subject_id query string false "Filter by subject"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	query := service.ScheduleQuery{
		WeekType:  c.Query("week_type"),
		GroupID:   c.Query("group_id"),
		TeacherID: c.Query("teacher_id"),
		SubjectID: c.Query("subject_id"),
		Now:       time.Now(),
	}
	if c.Query("all") == "true" {
		query.WeekType = "all"
	}
	if v := c.Query("day_of_week"); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil || day < 1 || day > 7 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 1 and 7"))
			return
		}
		query.DayOfWeek = &day
	}

	lessons, err := h.schedule.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons)
}

// Today godoc
// @Summary Today's lessons in the active parity cycle
// @Tags Schedule
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/today [get]
func (h *ScheduleHandler) Today(c *gin.Context) {
	teacherID := c.Query("teacher_id")
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleTeacher && teacherID == "" {
		teacherID = claims.UserID
	}

	lessons, err := h.schedule.Today(c.Request.Context(), time.Now(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons)
}

// Month godoc
// @Summary Project the schedule onto a calendar month
// @Tags Schedule
// @Produce json
// @Param year query int true "Calendar year"
// @Param month query int true "Month 1-12"
// @Param group_id query string false "Filter by group"
// @Param teacher_id query string false "Filter by teacher"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/month [get]
func (h *ScheduleHandler) Month(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be a number"))
		return
	}

	lessons, err := h.schedule.Month(c.Request.Context(), year, time.Month(month), c.Query("group_id"), c.Query("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons)
}

// Stats godoc
// @Summary Schedule statistics per parity cycle
// @Tags Schedule
// @Produce json
// @Param week_type query int false "Parity cycle 0, 1 or 2"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/stats [get]
func (h *ScheduleHandler) Stats(c *gin.Context) {
	var weekType *models.WeekType
	if v := c.Query("week_type"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || !models.WeekType(parsed).Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "week_type must be 0, 1 or 2"))
			return
		}
		wt := models.WeekType(parsed)
		weekType = &wt
	}

	stats, err := h.schedule.Stats(c.Request.Context(), weekType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Get godoc
// @Summary Get a lesson
// @Tags Schedule
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	lesson, err := h.schedule.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson)
}

// Create godoc
// @Summary Create a lesson
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.LessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Conflict list in details"
// @Security BearerAuth
// @Router /schedule [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.schedule.Create(c.Request.Context(), req)
	if err != nil {
		h.respondScheduleError(c, err)
		return
	}
	response.Created(c, lesson)
}

// Update godoc
// @Summary Update a lesson
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body service.LessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Conflict list in details"
// @Security BearerAuth
// @Router /schedule/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.schedule.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondScheduleError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson)
}

// Delete godoc
// @Summary Delete a lesson
// @Tags Schedule
// @Param id path string true "Lesson ID"
// @Success 204
// @Security BearerAuth
// @Router /schedule/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedule.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Check godoc
// @Summary Dry-run conflict check for a candidate slot
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.LessonRequest true "Candidate slot"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedule/check [post]
func (h *ScheduleHandler) Check(c *gin.Context) {
	var req service.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	conflicts, err := h.schedule.FindConflicts(c.Request.Context(), models.ConflictCandidate{
		TeacherID: req.TeacherID,
		GroupID:   req.GroupID,
		DayOfWeek: req.DayOfWeek,
		TimeStart: req.TimeStart,
		TimeEnd:   req.TimeEnd,
		Room:      req.Room,
	}, c.Query("exclude_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"conflicts": conflicts, "has_conflicts": len(conflicts) > 0})
}

func (h *ScheduleHandler) respondScheduleError(c *gin.Context, err error) {
	var conflictErr *models.ScheduleConflictError
	if errors.As(err, &conflictErr) {
		if h.metrics != nil {
			h.metrics.CountConflictRejection()
		}
		response.ErrorWithDetails(c, appErrors.Clone(appErrors.ErrScheduleConflict, conflictErr.Message), conflictErr.Conflicts)
		return
	}
	response.Error(c, err)
}
