package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/response"
)

// GroupHandler exposes group management endpoints.
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler constructs GroupHandler.
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// List godoc
// @Summary List groups
// @Tags Groups
// @Produce json
// @Param course query int false "Filter by course year"
// @Param search query string false "Match group name"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	var filter models.GroupFilter
	if v := c.Query("course"); v != "" {
		course, err := strconv.Atoi(v)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course must be a number"))
			return
		}
		filter.Course = &course
	}
	filter.CuratorID = c.Query("curator_id")
	filter.Search = c.Query("search")

	groups, err := h.groups.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups)
}

// Get godoc
// @Summary Get a group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group)
}

// Create godoc
// @Summary Create a group
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body service.GroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req service.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.groups.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// Update godoc
// @Summary Update a group
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.GroupRequest true "Group payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	var req service.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.groups.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group)
}

// Delete godoc
// @Summary Delete an empty group
// @Tags Groups
// @Param id path string true "Group ID"
// @Success 204
// @Security BearerAuth
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.groups.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByTeacher godoc
// @Summary List groups a teacher works with
// @Tags Groups
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/teacher/{id} [get]
func (h *GroupHandler) ListByTeacher(c *gin.Context) {
	groups, err := h.groups.ListByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups)
}

// ListStudents godoc
// @Summary List the students of a group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id}/students [get]
func (h *GroupHandler) ListStudents(c *gin.Context) {
	students, err := h.groups.ListStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

type addStudentRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// AddStudent godoc
// @Summary Enroll a student into a group
// @Tags Groups
// @Accept json
// @Param id path string true "Group ID"
// @Param payload body addStudentRequest true "Student"
// @Success 204
// @Security BearerAuth
// @Router /groups/{id}/students [post]
func (h *GroupHandler) AddStudent(c *gin.Context) {
	var req addStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.groups.AddStudent(c.Request.Context(), c.Param("id"), req.StudentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveStudent godoc
// @Summary Remove a student from a group
// @Tags Groups
// @Param id path string true "Group ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Security BearerAuth
// @Router /groups/{id}/students/{studentId} [delete]
func (h *GroupHandler) RemoveStudent(c *gin.Context) {
	if err := h.groups.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
