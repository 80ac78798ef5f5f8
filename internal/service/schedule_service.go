package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/academic"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.LessonDetail, error)
	FindByID(ctx context.Context, id string) (*models.LessonDetail, error)
	ListByTeacherDay(ctx context.Context, teacherID string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error)
	ListByGroupDay(ctx context.Context, groupID string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error)
	ListByRoomDay(ctx context.Context, room string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, weekType *models.WeekType) (*models.ScheduleStats, error)
}

// ScheduleQuery carries the raw listing parameters. WeekType holds the
// query string value: "" resolves the current parity from Now, "all"
// bypasses the parity filter, otherwise a numeric week type.
type ScheduleQuery struct {
	WeekType  string
	GroupID   string
	TeacherID string
	SubjectID string
	DayOfWeek *int
	Now       time.Time
}

// LessonRequest represents payload for creating and updating lessons.
type LessonRequest struct {
	SubjectID  string            `json:"subject_id" validate:"required"`
	GroupID    string            `json:"group_id" validate:"required"`
	TeacherID  string            `json:"teacher_id" validate:"required"`
	DayOfWeek  int               `json:"day_of_week" validate:"required,min=1,max=7"`
	TimeStart  string            `json:"time_start" validate:"required"`
	TimeEnd    string            `json:"time_end" validate:"required"`
	Room       *string           `json:"room"`
	WeekType   models.WeekType   `json:"week_type" validate:"min=0,max=2"`
	LessonType models.LessonType `json:"lesson_type" validate:"required,oneof=lecture practice lab"`
}

// ScheduleService implements the schedule query engine and the conflict
// detector over recurring weekly lessons.
type ScheduleService struct {
	repo      scheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService creates an instance of ScheduleService.
func NewScheduleService(repo scheduleRepository, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleService{repo: repo, validator: validate, logger: logger}
}

// List returns lessons for the requested parity cycle. Without an
// explicit week type the parity active at query.Now applies.
func (s *ScheduleService) List(ctx context.Context, query ScheduleQuery) ([]models.LessonDetail, error) {
	filter := models.ScheduleFilter{
		GroupID:   query.GroupID,
		TeacherID: query.TeacherID,
		SubjectID: query.SubjectID,
		DayOfWeek: query.DayOfWeek,
	}

	switch query.WeekType {
	case "all":
		// no parity filter
	case "":
		current := academic.ResolveWeekType(query.Now)
		filter.WeekType = &current
	default:
		parsed, err := strconv.Atoi(query.WeekType)
		if err != nil || !models.WeekType(parsed).Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "week_type must be 0, 1, 2 or all")
		}
		weekType := models.WeekType(parsed)
		filter.WeekType = &weekType
	}

	lessons, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}
	return lessons, nil
}

// Today returns the lessons occurring on now's weekday in now's parity
// cycle, optionally narrowed to one teacher.
func (s *ScheduleService) Today(ctx context.Context, now time.Time, teacherID string) ([]models.LessonDetail, error) {
	weekType := academic.ResolveWeekType(now)
	day := academic.Weekday(now)
	lessons, err := s.repo.List(ctx, models.ScheduleFilter{
		WeekType:  &weekType,
		DayOfWeek: &day,
		TeacherID: teacherID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's schedule")
	}
	return lessons, nil
}

// Month projects the recurring schedule onto the concrete dates of one
// calendar month, alternating parity week by week.
func (s *ScheduleService) Month(ctx context.Context, year int, month time.Month, groupID, teacherID string) ([]models.DatedLesson, error) {
	if month < time.January || month > time.December {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}

	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstDay.AddDate(0, 1, -1)

	startWeek := academic.WeekNumber(firstDay)
	// Early January can fall into the last ISO week of the previous year.
	if month == time.January && startWeek > 10 {
		startWeek = 1
	}

	byParity := map[models.WeekType][]models.LessonDetail{}
	result := []models.DatedLesson{}
	for week := startWeek; ; week++ {
		monday := academic.DateOfWeekday(year, week, 1)
		if monday.After(lastDay) {
			break
		}

		parity := academic.WeekTypeForWeek(year, week)
		lessons, ok := byParity[parity]
		if !ok {
			var err error
			lessons, err = s.repo.List(ctx, models.ScheduleFilter{
				WeekType:  &parity,
				GroupID:   groupID,
				TeacherID: teacherID,
			})
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load month schedule")
			}
			byParity[parity] = lessons
		}

		for _, lesson := range lessons {
			date := academic.DateOfWeekday(year, week, lesson.DayOfWeek)
			if date.Before(firstDay) || date.After(lastDay) {
				continue
			}
			result = append(result, models.DatedLesson{
				LessonDetail: lesson,
				Date:         date.Format("2006-01-02"),
			})
		}
	}
	return result, nil
}

// Get returns a lesson by ID with joined names.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.LessonDetail, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}

// Create validates a lesson, rejects it on conflicts and stores it.
func (s *ScheduleService) Create(ctx context.Context, req LessonRequest) (*models.Lesson, error) {
	lesson, err := s.buildLesson(req)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.FindConflicts(ctx, candidateOf(lesson), "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &models.ScheduleConflictError{Message: "lesson conflicts with the existing schedule", Conflicts: conflicts}
	}

	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	s.logger.Info("lesson created",
		zap.String("lesson_id", lesson.ID),
		zap.Int("day_of_week", lesson.DayOfWeek),
		zap.String("time_start", lesson.TimeStart))
	return lesson, nil
}

// Update validates a changed lesson, checking conflicts against every
// other lesson but the one being updated.
func (s *ScheduleService) Update(ctx context.Context, id string, req LessonRequest) (*models.Lesson, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	lesson, err := s.buildLesson(req)
	if err != nil {
		return nil, err
	}
	lesson.ID = id

	conflicts, err := s.FindConflicts(ctx, candidateOf(lesson), id)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &models.ScheduleConflictError{Message: "lesson conflicts with the existing schedule", Conflicts: conflicts}
	}

	if err := s.repo.Update(ctx, lesson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	return lesson, nil
}

// Delete removes a lesson.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	s.logger.Info("lesson deleted", zap.String("lesson_id", id))
	return nil
}

// Stats reports distinct resource counts for one parity or the whole
// schedule when weekType is nil.
func (s *ScheduleService) Stats(ctx context.Context, weekType *models.WeekType) (*models.ScheduleStats, error) {
	stats, err := s.repo.Stats(ctx, weekType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule stats")
	}
	return stats, nil
}

// FindConflicts scans same-day lessons on the teacher, group and room
// axes for time overlap with the candidate. Week-type parity is ignored
// on purpose: a slot clashing on alternate weeks is still rejected, so
// edits to parity can never introduce a hidden collision.
func (s *ScheduleService) FindConflicts(ctx context.Context, candidate models.ConflictCandidate, excludeID string) ([]models.LessonConflict, error) {
	start, err := academic.ParseClock(candidate.TimeStart)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := academic.ParseClock(candidate.TimeEnd)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	var conflicts []models.LessonConflict

	teacherLessons, err := s.repo.ListByTeacherDay(ctx, candidate.TeacherID, candidate.DayOfWeek, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan teacher conflicts")
	}
	conflicts = appendOverlaps(conflicts, models.ConflictTeacher, teacherLessons, start, end)

	groupLessons, err := s.repo.ListByGroupDay(ctx, candidate.GroupID, candidate.DayOfWeek, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan group conflicts")
	}
	conflicts = appendOverlaps(conflicts, models.ConflictGroup, groupLessons, start, end)

	if candidate.Room != nil && *candidate.Room != "" {
		roomLessons, err := s.repo.ListByRoomDay(ctx, *candidate.Room, candidate.DayOfWeek, excludeID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan room conflicts")
		}
		conflicts = appendOverlaps(conflicts, models.ConflictRoom, roomLessons, start, end)
	}

	return conflicts, nil
}

func appendOverlaps(conflicts []models.LessonConflict, axis models.ConflictType, lessons []models.LessonDetail, start, end int) []models.LessonConflict {
	for _, lesson := range lessons {
		otherStart, err := academic.ParseClock(lesson.TimeStart)
		if err != nil {
			continue
		}
		otherEnd, err := academic.ParseClock(lesson.TimeEnd)
		if err != nil {
			continue
		}
		if !academic.Overlaps(start, end, otherStart, otherEnd) {
			continue
		}
		conflicts = append(conflicts, models.LessonConflict{
			Type:     axis,
			LessonID: lesson.ID,
			Subject:  lesson.SubjectName,
			Group:    lesson.GroupName,
			Teacher:  lesson.TeacherName,
			Time:     fmt.Sprintf("%s-%s", academic.FormatClock(otherStart), academic.FormatClock(otherEnd)),
			Room:     lesson.Room,
		})
	}
	return conflicts
}

func (s *ScheduleService) buildLesson(req LessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	start, err := academic.ParseClock(req.TimeStart)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := academic.ParseClock(req.TimeEnd)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time_start must be before time_end")
	}

	return &models.Lesson{
		SubjectID:  req.SubjectID,
		GroupID:    req.GroupID,
		TeacherID:  req.TeacherID,
		DayOfWeek:  req.DayOfWeek,
		TimeStart:  academic.FormatClock(start),
		TimeEnd:    academic.FormatClock(end),
		Room:       req.Room,
		WeekType:   req.WeekType,
		LessonType: req.LessonType,
	}, nil
}

func candidateOf(lesson *models.Lesson) models.ConflictCandidate {
	return models.ConflictCandidate{
		TeacherID: lesson.TeacherID,
		GroupID:   lesson.GroupID,
		DayOfWeek: lesson.DayOfWeek,
		TimeStart: lesson.TimeStart,
		TimeEnd:   lesson.TimeEnd,
		Room:      lesson.Room,
	}
}
