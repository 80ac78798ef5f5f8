package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	BulkUpsert(ctx context.Context, lessonID string, date time.Time, entries []models.BulkAttendanceEntry) ([]models.Attendance, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error)
	LessonRoster(ctx context.Context, lessonID string, date time.Time) ([]models.LessonRosterEntry, error)
	Update(ctx context.Context, id string, status models.AttendanceStatus, notes *string) error
	Delete(ctx context.Context, id string) error
	StudentStats(ctx context.Context, studentID string, rng models.DateRange) (*models.AttendanceStats, error)
}

type attendanceLessonLookup interface {
	FindByID(ctx context.Context, id string) (*models.LessonDetail, error)
}

// SaveAttendanceRequest represents a single-record mark.
type SaveAttendanceRequest struct {
	LessonID  string                  `json:"lesson_id" validate:"required"`
	StudentID string                  `json:"student_id" validate:"required"`
	Date      string                  `json:"date" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
	Notes     *string                 `json:"notes"`
}

// BulkAttendanceRequest represents one submission for one lesson/date.
type BulkAttendanceRequest struct {
	LessonID string                       `json:"lesson_id" validate:"required"`
	Date     string                       `json:"date" validate:"required"`
	Records  []models.BulkAttendanceEntry `json:"records" validate:"required,min=1,dive"`
}

// UpdateAttendanceRequest modifies status and notes of a record.
type UpdateAttendanceRequest struct {
	Status models.AttendanceStatus `json:"status" validate:"required"`
	Notes  *string                 `json:"notes"`
}

// AttendanceService handles attendance recording workflows.
type AttendanceService struct {
	repo      attendanceRepository
	lessons   attendanceLessonLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService creates an instance of AttendanceService.
func NewAttendanceService(repo attendanceRepository, lessons attendanceLessonLookup, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{repo: repo, lessons: lessons, validator: validate, logger: logger}
}

// Save upserts a single mark keyed by (lesson, student, date); repeated
// submissions overwrite status and notes.
func (s *AttendanceService) Save(ctx context.Context, req SaveAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be present, absent, late or excused")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.lessons.FindByID(ctx, req.LessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	record, err := s.repo.Upsert(ctx, &models.Attendance{
		LessonID:  req.LessonID,
		StudentID: req.StudentID,
		Date:      date,
		Status:    req.Status,
		Notes:     req.Notes,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	return record, nil
}

// BulkSave stores one submission for one lesson/date atomically. Any
// failing record rolls back the whole submission.
func (s *AttendanceService) BulkSave(ctx context.Context, req BulkAttendanceRequest) ([]models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	for _, entry := range req.Records {
		if !entry.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be present, absent, late or excused")
		}
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.lessons.FindByID(ctx, req.LessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	records, err := s.repo.BulkUpsert(ctx, req.LessonID, date, req.Records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance batch")
	}
	s.logger.Info("attendance batch saved",
		zap.String("lesson_id", req.LessonID),
		zap.String("date", req.Date),
		zap.Int("records", len(records)))
	return records, nil
}

// Get returns one record with joined metadata.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	return record, nil
}

// List returns records matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// LessonRoster returns the lesson group's students with their marks for
// one date, unmarked students included.
func (s *AttendanceService) LessonRoster(ctx context.Context, lessonID, dateString string) ([]models.LessonRosterEntry, error) {
	date, err := parseDate(dateString)
	if err != nil {
		return nil, err
	}
	if _, err := s.lessons.FindByID(ctx, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	roster, err := s.repo.LessonRoster(ctx, lessonID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson roster")
	}
	return roster, nil
}

// Update modifies status and notes of an existing record.
func (s *AttendanceService) Update(ctx context.Context, id string, req UpdateAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "status must be present, absent, late or excused")
	}
	if err := s.repo.Update(ctx, id, req.Status, req.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	return nil
}

// Delete removes a record.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance")
	}
	return nil
}

// StudentStats aggregates one student's counts over an optional range.
func (s *AttendanceService) StudentStats(ctx context.Context, studentID string, rng models.DateRange) (*models.AttendanceStats, error) {
	stats, err := s.repo.StudentStats(ctx, studentID, rng)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance stats")
	}
	return stats, nil
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return date, nil
}
