package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const lessonDetailColumns = `s.id, s.subject_id, s.group_id, s.teacher_id, s.day_of_week, s.time_start, s.time_end, s.room, s.week_type, s.lesson_type, s.created_at, s.updated_at,
subj.name AS subject_name, g.name AS group_name, u.first_name || ' ' || u.last_name AS teacher_name`

const lessonDetailJoins = `FROM schedule s
LEFT JOIN subjects subj ON subj.id = s.subject_id
LEFT JOIN groups g ON g.id = s.group_id
LEFT JOIN users u ON u.id = s.teacher_id`

// ScheduleRepository provides persistence for recurring lessons.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns lessons matching the filter, ordered by day then start time.
// A set WeekType also admits every-week slots; nil returns all parities.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.LessonDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.WeekType != nil {
		conditions = append(conditions, fmt.Sprintf("(s.week_type = $%d OR s.week_type = 0)", len(args)+1))
		args = append(args, *filter.WeekType)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("s.group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("s.day_of_week = $%d", len(args)+1))
		args = append(args, *filter.DayOfWeek)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("s.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}

	query := fmt.Sprintf("SELECT %s %s WHERE 1=1", lessonDetailColumns, lessonDetailJoins)
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.day_of_week ASC, s.time_start ASC"

	lessons := []models.LessonDetail{}
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	return lessons, nil
}

// FindByID loads one lesson with joined names.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.LessonDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", lessonDetailColumns, lessonDetailJoins)
	var lesson models.LessonDetail
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListByTeacherDay returns a teacher's lessons on one weekday for conflict
// scanning. excludeID omits one lesson, empty string omits none.
func (r *ScheduleRepository) ListByTeacherDay(ctx context.Context, teacherID string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	return r.listByResourceDay(ctx, "s.teacher_id = $1", teacherID, dayOfWeek, excludeID)
}

// ListByGroupDay returns a group's lessons on one weekday.
func (r *ScheduleRepository) ListByGroupDay(ctx context.Context, groupID string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	return r.listByResourceDay(ctx, "s.group_id = $1", groupID, dayOfWeek, excludeID)
}

// ListByRoomDay returns a room's lessons on one weekday.
func (r *ScheduleRepository) ListByRoomDay(ctx context.Context, room string, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	return r.listByResourceDay(ctx, "s.room = $1", room, dayOfWeek, excludeID)
}

func (r *ScheduleRepository) listByResourceDay(ctx context.Context, resourceCond string, resource interface{}, dayOfWeek int, excludeID string) ([]models.LessonDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE %s AND s.day_of_week = $2", lessonDetailColumns, lessonDetailJoins, resourceCond)
	args := []interface{}{resource, dayOfWeek}
	if excludeID != "" {
		query += " AND s.id != $3"
		args = append(args, excludeID)
	}

	lessons := []models.LessonDetail{}
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list lessons for conflict scan: %w", err)
	}
	return lessons, nil
}

// Create stores a new lesson.
func (r *ScheduleRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO schedule (id, subject_id, group_id, teacher_id, day_of_week, time_start, time_end, room, week_type, lesson_type, created_at, updated_at)
VALUES (:id, :subject_id, :group_id, :teacher_id, :day_of_week, :time_start, :time_end, :room, :week_type, :lesson_type, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update modifies a lesson record.
func (r *ScheduleRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule SET subject_id = :subject_id, group_id = :group_id, teacher_id = :teacher_id, day_of_week = :day_of_week, time_start = :time_start, time_end = :time_end, room = :room, week_type = :week_type, lesson_type = :lesson_type, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, lesson)
	if err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a lesson by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedule WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats counts distinct resources for one parity cycle, or for the whole
// schedule when weekType is nil.
func (r *ScheduleRepository) Stats(ctx context.Context, weekType *models.WeekType) (*models.ScheduleStats, error) {
	query := `SELECT COUNT(*) AS total_lessons,
COUNT(DISTINCT teacher_id) AS teachers_count,
COUNT(DISTINCT group_id) AS groups_count,
COUNT(DISTINCT subject_id) AS subjects_count
FROM schedule WHERE 1=1`
	var args []interface{}
	if weekType != nil {
		query += " AND (week_type = $1 OR week_type = 0)"
		args = append(args, *weekType)
	}

	var stats models.ScheduleStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("schedule stats: %w", err)
	}
	return &stats, nil
}
