package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	"github.com/noah-isme/campus-attendance-api/internal/service"
)

type fakeScheduleRepo struct {
	lessons []models.LessonDetail
	created *models.Lesson
}

func (f *fakeScheduleRepo) List(context.Context, models.ScheduleFilter) ([]models.LessonDetail, error) {
	return f.lessons, nil
}

func (f *fakeScheduleRepo) FindByID(_ context.Context, id string) (*models.LessonDetail, error) {
	for i := range f.lessons {
		if f.lessons[i].ID == id {
			return &f.lessons[i], nil
		}
	}
	return nil, nil
}

func (f *fakeScheduleRepo) ListByTeacherDay(_ context.Context, teacherID string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	var out []models.LessonDetail
	for _, lesson := range f.lessons {
		if lesson.TeacherID == teacherID && lesson.DayOfWeek == dayOfWeek && lesson.ID != excludeID {
			out = append(out, lesson)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListByGroupDay(_ context.Context, groupID string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	var out []models.LessonDetail
	for _, lesson := range f.lessons {
		if lesson.GroupID == groupID && lesson.DayOfWeek == dayOfWeek && lesson.ID != excludeID {
			out = append(out, lesson)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListByRoomDay(_ context.Context, room string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	var out []models.LessonDetail
	for _, lesson := range f.lessons {
		if lesson.Room != nil && *lesson.Room == room && lesson.DayOfWeek == dayOfWeek && lesson.ID != excludeID {
			out = append(out, lesson)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) Create(_ context.Context, lesson *models.Lesson) error {
	lesson.ID = "les-new"
	f.created = lesson
	return nil
}

func (f *fakeScheduleRepo) Update(context.Context, *models.Lesson) error { return nil }

func (f *fakeScheduleRepo) Delete(context.Context, string) error { return nil }

func (f *fakeScheduleRepo) Stats(context.Context, *models.WeekType) (*models.ScheduleStats, error) {
	return &models.ScheduleStats{}, nil
}

func newScheduleHandlerFixture(repo *fakeScheduleRepo) *ScheduleHandler {
	gin.SetMode(gin.TestMode)
	svc := service.NewScheduleService(repo, nil, nil)
	return NewScheduleHandler(svc, service.NewMetricsService())
}

func mondayLesson() models.LessonDetail {
	room := "204"
	return models.LessonDetail{Lesson: models.Lesson{
		ID:         "les-1",
		SubjectID:  "sub-1",
		GroupID:    "grp-1",
		TeacherID:  "tch-1",
		DayOfWeek:  1,
		TimeStart:  "08:30",
		TimeEnd:    "10:00",
		Room:       &room,
		WeekType:   models.WeekTypeEvery,
		LessonType: models.LessonTypeLecture,
	}}
}

func lessonBody(t *testing.T, overrides map[string]interface{}) *bytes.Reader {
	t.Helper()
	payload := map[string]interface{}{
		"subject_id":  "sub-2",
		"group_id":    "grp-2",
		"teacher_id":  "tch-2",
		"day_of_week": 1,
		"time_start":  "08:30",
		"time_end":    "10:00",
		"week_type":   0,
		"lesson_type": "lecture",
	}
	for k, v := range overrides {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestScheduleHandlerCreateSuccess(t *testing.T) {
	repo := &fakeScheduleRepo{lessons: []models.LessonDetail{mondayLesson()}}
	handler := newScheduleHandlerFixture(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/schedule", lessonBody(t, map[string]interface{}{
		"day_of_week": 2,
	}))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, 2, repo.created.DayOfWeek)
}

func TestScheduleHandlerCreateConflictResponse(t *testing.T) {
	repo := &fakeScheduleRepo{lessons: []models.LessonDetail{mondayLesson()}}
	handler := newScheduleHandlerFixture(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/schedule", lessonBody(t, map[string]interface{}{
		"teacher_id": "tch-1",
		"time_start": "09:00",
		"time_end":   "10:30",
	}))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Nil(t, repo.created)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Details []models.LessonConflict `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "SCHEDULE_CONFLICT", envelope.Error.Code)
	require.Len(t, envelope.Details, 1)
	assert.Equal(t, models.ConflictTeacher, envelope.Details[0].Type)
	assert.Equal(t, "les-1", envelope.Details[0].LessonID)
}

func TestScheduleHandlerCreateRejectsBadPayload(t *testing.T) {
	handler := newScheduleHandlerFixture(&fakeScheduleRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/schedule", bytes.NewReader([]byte("{not json")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleHandlerCheckReportsConflicts(t *testing.T) {
	repo := &fakeScheduleRepo{lessons: []models.LessonDetail{mondayLesson()}}
	handler := newScheduleHandlerFixture(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/schedule/check", lessonBody(t, map[string]interface{}{
		"group_id": "grp-1",
	}))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Check(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, repo.created)

	var envelope struct {
		Data struct {
			HasConflicts bool                    `json:"has_conflicts"`
			Conflicts    []models.LessonConflict `json:"conflicts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.HasConflicts)
	require.Len(t, envelope.Data.Conflicts, 1)
	assert.Equal(t, models.ConflictGroup, envelope.Data.Conflicts[0].Type)
}

func TestScheduleHandlerListRejectsBadDay(t *testing.T) {
	handler := newScheduleHandlerFixture(&fakeScheduleRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedule?day_of_week=9", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
