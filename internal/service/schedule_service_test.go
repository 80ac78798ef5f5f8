package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

type mockScheduleRepo struct {
	lessons     []models.LessonDetail
	listFilters []models.ScheduleFilter
	created     *models.Lesson
	updated     *models.Lesson
	deleted     []string
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.LessonDetail, error) {
	m.listFilters = append(m.listFilters, filter)
	var out []models.LessonDetail
	for _, lesson := range m.lessons {
		if filter.WeekType != nil && lesson.WeekType != *filter.WeekType && lesson.WeekType != models.WeekTypeEvery {
			continue
		}
		if filter.GroupID != "" && lesson.GroupID != filter.GroupID {
			continue
		}
		if filter.TeacherID != "" && lesson.TeacherID != filter.TeacherID {
			continue
		}
		if filter.DayOfWeek != nil && lesson.DayOfWeek != *filter.DayOfWeek {
			continue
		}
		if filter.SubjectID != "" && lesson.SubjectID != filter.SubjectID {
			continue
		}
		out = append(out, lesson)
	}
	return out, nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.LessonDetail, error) {
	for _, lesson := range m.lessons {
		if lesson.ID == id {
			return &lesson, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) listByDay(match func(models.LessonDetail) bool, dayOfWeek int, excludeID string) []models.LessonDetail {
	var out []models.LessonDetail
	for _, lesson := range m.lessons {
		if lesson.DayOfWeek != dayOfWeek || lesson.ID == excludeID {
			continue
		}
		if match(lesson) {
			out = append(out, lesson)
		}
	}
	return out
}

func (m *mockScheduleRepo) ListByTeacherDay(ctx context.Context, teacherID string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	return m.listByDay(func(l models.LessonDetail) bool { return l.TeacherID == teacherID }, dayOfWeek, excludeID), nil
}

func (m *mockScheduleRepo) ListByGroupDay(ctx context.Context, groupID string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	return m.listByDay(func(l models.LessonDetail) bool { return l.GroupID == groupID }, dayOfWeek, excludeID), nil
}

func (m *mockScheduleRepo) ListByRoomDay(ctx context.Context, room string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	return m.listByDay(func(l models.LessonDetail) bool { return l.Room != nil && *l.Room == room }, dayOfWeek, excludeID), nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = "new-lesson"
	}
	m.created = lesson
	m.lessons = append(m.lessons, models.LessonDetail{Lesson: *lesson})
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, lesson *models.Lesson) error {
	m.updated = lesson
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockScheduleRepo) Stats(ctx context.Context, weekType *models.WeekType) (*models.ScheduleStats, error) {
	return &models.ScheduleStats{TotalLessons: len(m.lessons)}, nil
}

func strPtr(v string) *string { return &v }

func fixtureLesson(id, teacherID, groupID string, day int, start, end string, room *string, weekType models.WeekType) models.LessonDetail {
	return models.LessonDetail{
		Lesson: models.Lesson{
			ID:         id,
			SubjectID:  "sub-1",
			GroupID:    groupID,
			TeacherID:  teacherID,
			DayOfWeek:  day,
			TimeStart:  start,
			TimeEnd:    end,
			Room:       room,
			WeekType:   weekType,
			LessonType: models.LessonTypeLecture,
		},
		SubjectName: strPtr("Databases"),
		GroupName:   strPtr("CS-201"),
		TeacherName: strPtr("Anna Petrova"),
	}
}

func TestScheduleServiceListResolvesCurrentParity(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewScheduleService(repo, nil, nil)

	// Sep 1 2025 is the epoch Monday, weeks elapsed = 0, odd cycle.
	now := time.Date(2025, time.September, 3, 12, 0, 0, 0, time.UTC)
	_, err := svc.List(context.Background(), ScheduleQuery{Now: now})
	require.NoError(t, err)

	require.Len(t, repo.listFilters, 1)
	require.NotNil(t, repo.listFilters[0].WeekType)
	assert.Equal(t, models.WeekTypeOdd, *repo.listFilters[0].WeekType)

	// One week later the even cycle is active.
	_, err = svc.List(context.Background(), ScheduleQuery{Now: now.AddDate(0, 0, 7)})
	require.NoError(t, err)
	assert.Equal(t, models.WeekTypeEven, *repo.listFilters[1].WeekType)
}

func TestScheduleServiceListAllBypassesParity(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewScheduleService(repo, nil, nil)

	_, err := svc.List(context.Background(), ScheduleQuery{WeekType: "all", Now: time.Now()})
	require.NoError(t, err)
	require.Len(t, repo.listFilters, 1)
	assert.Nil(t, repo.listFilters[0].WeekType)
}

func TestScheduleServiceListRejectsBadWeekType(t *testing.T) {
	svc := NewScheduleService(&mockScheduleRepo{}, nil, nil)
	_, err := svc.List(context.Background(), ScheduleQuery{WeekType: "5", Now: time.Now()})
	require.Error(t, err)
}

func TestScheduleServiceCreateRejectsConflicts(t *testing.T) {
	repo := &mockScheduleRepo{lessons: []models.LessonDetail{
		fixtureLesson("les-1", "tch-1", "grp-other", 2, "09:00", "10:30", strPtr("201"), models.WeekTypeOdd),
	}}
	svc := NewScheduleService(repo, nil, nil)

	// Same teacher, overlapping slot; parity differs but is ignored.
	_, err := svc.Create(context.Background(), LessonRequest{
		SubjectID:  "sub-2",
		GroupID:    "grp-1",
		TeacherID:  "tch-1",
		DayOfWeek:  2,
		TimeStart:  "10:00",
		TimeEnd:    "11:30",
		WeekType:   models.WeekTypeEven,
		LessonType: models.LessonTypeLecture,
	})
	require.Error(t, err)

	var conflictErr *models.ScheduleConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, models.ConflictTeacher, conflictErr.Conflicts[0].Type)
	assert.Nil(t, repo.created)
}

func TestScheduleServiceCreateAllowsBackToBack(t *testing.T) {
	repo := &mockScheduleRepo{lessons: []models.LessonDetail{
		fixtureLesson("les-1", "tch-1", "grp-1", 2, "09:00", "10:30", nil, models.WeekTypeEvery),
	}}
	svc := NewScheduleService(repo, nil, nil)

	lesson, err := svc.Create(context.Background(), LessonRequest{
		SubjectID:  "sub-2",
		GroupID:    "grp-1",
		TeacherID:  "tch-1",
		DayOfWeek:  2,
		TimeStart:  "10:30",
		TimeEnd:    "12:00",
		WeekType:   models.WeekTypeEvery,
		LessonType: models.LessonTypePractice,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lesson.ID)
}

func TestScheduleServiceCreateRejectsInvertedTimes(t *testing.T) {
	svc := NewScheduleService(&mockScheduleRepo{}, nil, nil)
	_, err := svc.Create(context.Background(), LessonRequest{
		SubjectID:  "sub-1",
		GroupID:    "grp-1",
		TeacherID:  "tch-1",
		DayOfWeek:  1,
		TimeStart:  "12:00",
		TimeEnd:    "10:00",
		LessonType: models.LessonTypeLecture,
	})
	require.Error(t, err)
}

func TestScheduleServiceUpdateExcludesSelf(t *testing.T) {
	repo := &mockScheduleRepo{lessons: []models.LessonDetail{
		fixtureLesson("les-1", "tch-1", "grp-1", 2, "09:00", "10:30", nil, models.WeekTypeEvery),
	}}
	svc := NewScheduleService(repo, nil, nil)

	// Shifting the lesson's own time must not conflict with itself.
	updated, err := svc.Update(context.Background(), "les-1", LessonRequest{
		SubjectID:  "sub-1",
		GroupID:    "grp-1",
		TeacherID:  "tch-1",
		DayOfWeek:  2,
		TimeStart:  "09:30",
		TimeEnd:    "11:00",
		WeekType:   models.WeekTypeEvery,
		LessonType: models.LessonTypeLecture,
	})
	require.NoError(t, err)
	assert.Equal(t, "les-1", updated.ID)
	require.NotNil(t, repo.updated)
	assert.Equal(t, "09:30", repo.updated.TimeStart)
}

func TestScheduleServiceRoomConflictAcrossGroups(t *testing.T) {
	repo := &mockScheduleRepo{lessons: []models.LessonDetail{
		fixtureLesson("les-1", "tch-other", "grp-other", 4, "14:00", "15:30", strPtr("305"), models.WeekTypeEvery),
	}}
	svc := NewScheduleService(repo, nil, nil)

	conflicts, err := svc.FindConflicts(context.Background(), models.ConflictCandidate{
		TeacherID: "tch-1",
		GroupID:   "grp-1",
		DayOfWeek: 4,
		TimeStart: "15:00",
		TimeEnd:   "16:30",
		Room:      strPtr("305"),
	}, "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictRoom, conflicts[0].Type)
}

func TestScheduleServiceTodayFiltersDayAndParity(t *testing.T) {
	repo := &mockScheduleRepo{lessons: []models.LessonDetail{
		fixtureLesson("les-mon", "tch-1", "grp-1", 1, "09:00", "10:30", nil, models.WeekTypeEvery),
		fixtureLesson("les-tue", "tch-1", "grp-1", 2, "09:00", "10:30", nil, models.WeekTypeEvery),
		fixtureLesson("les-mon-even", "tch-1", "grp-1", 1, "11:00", "12:30", nil, models.WeekTypeEven),
	}}
	svc := NewScheduleService(repo, nil, nil)

	// Sep 1 2025, a Monday in the odd cycle.
	now := time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC)
	lessons, err := svc.Today(context.Background(), now, "")
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "les-mon", lessons[0].ID)
}

func TestScheduleServiceMonthProjectsDates(t *testing.T) {
	repo := &mockScheduleRepo{lessons: []models.LessonDetail{
		fixtureLesson("les-every", "tch-1", "grp-1", 1, "09:00", "10:30", nil, models.WeekTypeEvery),
		fixtureLesson("les-odd", "tch-1", "grp-1", 3, "11:00", "12:30", nil, models.WeekTypeOdd),
	}}
	svc := NewScheduleService(repo, nil, nil)

	dated, err := svc.Month(context.Background(), 2025, time.September, "grp-1", "")
	require.NoError(t, err)
	require.NotEmpty(t, dated)

	everyCount := 0
	oddCount := 0
	for _, lesson := range dated {
		date, err := time.Parse("2006-01-02", lesson.Date)
		require.NoError(t, err)
		assert.Equal(t, time.September, date.Month())
		switch lesson.ID {
		case "les-every":
			everyCount++
		case "les-odd":
			oddCount++
		}
	}
	// The every-week slot appears on all projected weeks, the odd-cycle
	// slot only on alternating ones.
	assert.Greater(t, everyCount, oddCount)
	assert.Greater(t, oddCount, 0)
}

func TestScheduleServiceMonthRejectsBadMonth(t *testing.T) {
	svc := NewScheduleService(&mockScheduleRepo{}, nil, nil)
	_, err := svc.Month(context.Background(), 2025, time.Month(13), "", "")
	require.Error(t, err)
}
