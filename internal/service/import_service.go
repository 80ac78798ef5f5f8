package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/academic"
	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/spreadsheet"
)

type importSubjectRepository interface {
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

type importGroupRepository interface {
	FindByName(ctx context.Context, name string) (*models.Group, error)
}

type importTeacherRepository interface {
	FindTeacherByFullName(ctx context.Context, fullName string) (*models.User, error)
}

type importLessonWriter interface {
	Create(ctx context.Context, lesson *models.Lesson) error
}

type conflictDetector interface {
	FindConflicts(ctx context.Context, candidate models.ConflictCandidate, excludeID string) ([]models.LessonConflict, error)
}

// ImportService reconciles spreadsheet rows against the entity
// repositories and feeds clean rows into the schedule.
type ImportService struct {
	subjects  importSubjectRepository
	groups    importGroupRepository
	teachers  importTeacherRepository
	lessons   importLessonWriter
	conflicts conflictDetector
	logger    *zap.Logger
}

// NewImportService creates an instance of ImportService.
func NewImportService(subjects importSubjectRepository, groups importGroupRepository, teachers importTeacherRepository, lessons importLessonWriter, conflicts conflictDetector, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		subjects:  subjects,
		groups:    groups,
		teachers:  teachers,
		lessons:   lessons,
		conflicts: conflicts,
		logger:    logger,
	}
}

// ParseFile converts an uploaded spreadsheet into import rows. The
// extension picks the parser; row numbers are spreadsheet rows, header
// is row 1 and data starts at row 2.
func (s *ImportService) ParseFile(filename string, data []byte) ([]models.ImportRow, error) {
	var (
		parsed []spreadsheet.Row
		err    error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		parsed, err = spreadsheet.ParseXLSX(data)
	case ".csv":
		parsed, err = spreadsheet.ParseCSV(data)
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEmptyFile.Code, appErrors.ErrEmptyFile.Status, "failed to parse file")
	}
	if len(parsed) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyFile, "")
	}

	rows := make([]models.ImportRow, 0, len(parsed))
	for i, raw := range parsed {
		row := models.ImportRow{
			Row:         i + 2,
			SubjectName: raw.Get("subject"),
			SubjectType: raw.Get("subject_type"),
			GroupName:   raw.Get("group"),
			TeacherName: raw.Get("teacher"),
			TimeStart:   raw.Get("time_start"),
			TimeEnd:     raw.Get("time_end"),
			Room:        raw.Get("room"),
			LessonType:  raw.Get("lesson_type"),
		}
		if v := raw.Get("hours"); v != "" {
			row.Hours, _ = strconv.Atoi(v)
		}
		if v := raw.Get("day_of_week"); v != "" {
			row.DayOfWeek, _ = strconv.Atoi(v)
		}
		if v := raw.Get("week_type"); v != "" {
			weekType, _ := strconv.Atoi(v)
			row.WeekType = models.WeekType(weekType)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Validate runs the shape-only preview pass. It never touches the
// database: unresolved entities and schedule conflicts surface during
// the committing import only.
func (s *ImportService) Validate(rows []models.ImportRow) models.ImportValidation {
	result := models.ImportValidation{
		TotalRecords: len(rows),
		Errors:       []models.ImportRowError{},
		Warnings:     []models.ImportRowWarning{},
	}

	for _, row := range rows {
		if msg := shapeError(row); msg != "" {
			result.Errors = append(result.Errors, models.ImportRowError{Row: row.Row, Message: msg})
			continue
		}
		if row.Room == "" {
			result.Warnings = append(result.Warnings, models.ImportRowWarning{
				Row:     row.Row,
				Message: "room is empty",
				Type:    "missing_room",
			})
		}
		if row.LessonType == "" {
			result.Warnings = append(result.Warnings, models.ImportRowWarning{
				Row:     row.Row,
				Message: "lesson type is empty, will default to lecture",
				Type:    "defaulted_lesson_type",
			})
		}
		result.NewRecords++
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// Import commits a batch row by row. A failed row is recorded and
// skipped, the batch always runs to completion. Name lookups are
// memoized for the lifetime of the batch.
func (s *ImportService) Import(ctx context.Context, rows []models.ImportRow) (*models.ImportResult, error) {
	result := &models.ImportResult{Total: len(rows), Errors: []models.ImportRowError{}}
	memo := newImportMemo()

	for _, row := range rows {
		if err := s.importRow(ctx, row, memo); err != nil {
			rowErr := models.ImportRowError{Row: row.Row, Message: err.Error()}
			var conflictErr *models.ScheduleConflictError
			if errors.As(err, &conflictErr) {
				rowErr.Message = conflictErr.Message
				rowErr.Conflicts = conflictErr.Conflicts
			}
			result.Errors = append(result.Errors, rowErr)
			result.Failed++
			continue
		}
		result.Imported++
	}

	s.logger.Info("schedule import finished",
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *ImportService) importRow(ctx context.Context, row models.ImportRow, memo *importMemo) error {
	if msg := shapeError(row); msg != "" {
		return errors.New(msg)
	}

	subject, err := s.resolveSubject(ctx, row, memo)
	if err != nil {
		return err
	}
	group, err := s.resolveGroup(ctx, row.GroupName, memo)
	if err != nil {
		return err
	}
	teacher, err := s.resolveTeacher(ctx, row.TeacherName, memo)
	if err != nil {
		return err
	}

	lessonType := models.LessonType(row.LessonType)
	if row.LessonType == "" {
		lessonType = models.LessonTypeLecture
	}
	if !lessonType.Valid() {
		return fmt.Errorf("unknown lesson type %q", row.LessonType)
	}

	var room *string
	if row.Room != "" {
		room = &row.Room
	}

	candidate := models.ConflictCandidate{
		TeacherID: teacher.ID,
		GroupID:   group.ID,
		DayOfWeek: row.DayOfWeek,
		TimeStart: row.TimeStart,
		TimeEnd:   row.TimeEnd,
		Room:      room,
	}
	conflicts, err := s.conflicts.FindConflicts(ctx, candidate, "")
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &models.ScheduleConflictError{Message: "lesson conflicts with the existing schedule", Conflicts: conflicts}
	}

	lesson := &models.Lesson{
		SubjectID:  subject.ID,
		GroupID:    group.ID,
		TeacherID:  teacher.ID,
		DayOfWeek:  row.DayOfWeek,
		TimeStart:  row.TimeStart,
		TimeEnd:    row.TimeEnd,
		Room:       room,
		WeekType:   row.WeekType,
		LessonType: lessonType,
	}
	return s.lessons.Create(ctx, lesson)
}

// resolveSubject is the one find-or-create resolver of the reconciler:
// unknown subjects are created with the row's type and hours.
func (s *ImportService) resolveSubject(ctx context.Context, row models.ImportRow, memo *importMemo) (*models.Subject, error) {
	if subject, ok := memo.subjects[row.SubjectName]; ok {
		return subject, nil
	}

	subject, err := s.subjects.FindByName(ctx, row.SubjectName)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up subject %q", row.SubjectName)
		}
		subjectType := row.SubjectType
		if subjectType == "" {
			subjectType = "mixed"
		}
		subject = &models.Subject{
			ID:    uuid.NewString(),
			Name:  row.SubjectName,
			Type:  subjectType,
			Hours: row.Hours,
		}
		if err := s.subjects.Create(ctx, subject); err != nil {
			return nil, fmt.Errorf("failed to create subject %q", row.SubjectName)
		}
	}
	memo.subjects[row.SubjectName] = subject
	return subject, nil
}

func (s *ImportService) resolveGroup(ctx context.Context, name string, memo *importMemo) (*models.Group, error) {
	if group, ok := memo.groups[name]; ok {
		return group, nil
	}
	group, err := s.groups.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %q not found", name)
		}
		return nil, fmt.Errorf("failed to look up group %q", name)
	}
	memo.groups[name] = group
	return group, nil
}

func (s *ImportService) resolveTeacher(ctx context.Context, fullName string, memo *importMemo) (*models.User, error) {
	if teacher, ok := memo.teachers[fullName]; ok {
		return teacher, nil
	}
	teacher, err := s.teachers.FindTeacherByFullName(ctx, fullName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("teacher %q not found", fullName)
		}
		return nil, fmt.Errorf("failed to look up teacher %q", fullName)
	}
	memo.teachers[fullName] = teacher
	return teacher, nil
}

func shapeError(row models.ImportRow) string {
	var missing []string
	if row.SubjectName == "" {
		missing = append(missing, "subject")
	}
	if row.GroupName == "" {
		missing = append(missing, "group")
	}
	if row.TeacherName == "" {
		missing = append(missing, "teacher")
	}
	if len(missing) > 0 {
		return "missing required fields: " + strings.Join(missing, ", ")
	}

	if row.DayOfWeek < 1 || row.DayOfWeek > 7 {
		return "day_of_week must be between 1 and 7"
	}
	start, err := academic.ParseClock(row.TimeStart)
	if err != nil {
		return "invalid time_start"
	}
	end, err := academic.ParseClock(row.TimeEnd)
	if err != nil {
		return "invalid time_end"
	}
	if start >= end {
		return "time_start must be before time_end"
	}
	if !row.WeekType.Valid() {
		return "week_type must be 0, 1 or 2"
	}
	return ""
}

type importMemo struct {
	subjects map[string]*models.Subject
	groups   map[string]*models.Group
	teachers map[string]*models.User
}

func newImportMemo() *importMemo {
	return &importMemo{
		subjects: map[string]*models.Subject{},
		groups:   map[string]*models.Group{},
		teachers: map[string]*models.User{},
	}
}
