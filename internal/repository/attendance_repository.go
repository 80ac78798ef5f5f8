package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

const attendanceUpsertQuery = `INSERT INTO attendance (id, lesson_id, student_id, date, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (lesson_id, student_id, date)
DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
RETURNING id, lesson_id, student_id, date, status, notes, created_at, updated_at`

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts or overwrites the record keyed by (lesson, student, date).
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	var stored models.Attendance
	err := r.db.GetContext(ctx, &stored, attendanceUpsertQuery,
		record.ID, record.LessonID, record.StudentID, record.Date, record.Status, record.Notes, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// BulkUpsert writes one lesson/date submission in a single transaction.
// Any failed row rolls back the whole submission.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, lessonID string, date time.Time, entries []models.BulkAttendanceEntry) ([]models.Attendance, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	stored := make([]models.Attendance, 0, len(entries))
	for _, entry := range entries {
		var record models.Attendance
		if err = tx.GetContext(ctx, &record, attendanceUpsertQuery,
			uuid.NewString(), lessonID, entry.StudentID, date, entry.Status, entry.Notes, now, now); err != nil {
			err = fmt.Errorf("bulk upsert attendance for student %s: %w", entry.StudentID, err)
			return nil, err
		}
		stored = append(stored, record)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", err)
	}
	return stored, nil
}

// FindByID loads one record with joined metadata.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	const query = `SELECT a.id, a.lesson_id, a.student_id, a.date, a.status, a.notes, a.created_at, a.updated_at,
u.first_name || ' ' || u.last_name AS student_name,
g.name AS group_name,
subj.name AS subject_name
FROM attendance a
LEFT JOIN users u ON u.id = a.student_id
LEFT JOIN schedule s ON s.id = a.lesson_id
LEFT JOIN groups g ON g.id = s.group_id
LEFT JOIN subjects subj ON subj.id = s.subject_id
WHERE a.id = $1`

	var record models.AttendanceDetail
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns attendance records matching the filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	query := `SELECT a.id, a.lesson_id, a.student_id, a.date, a.status, a.notes, a.created_at, a.updated_at,
u.first_name || ' ' || u.last_name AS student_name,
g.name AS group_name,
subj.name AS subject_name
FROM attendance a
LEFT JOIN users u ON u.id = a.student_id
LEFT JOIN schedule s ON s.id = a.lesson_id
LEFT JOIN groups g ON g.id = s.group_id
LEFT JOIN subjects subj ON subj.id = s.subject_id
WHERE 1=1`
	var args []interface{}

	if filter.LessonID != "" {
		query += fmt.Sprintf(" AND a.lesson_id = $%d", len(args)+1)
		args = append(args, filter.LessonID)
	}
	if filter.StudentID != "" {
		query += fmt.Sprintf(" AND a.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.GroupID != "" {
		query += fmt.Sprintf(" AND s.group_id = $%d", len(args)+1)
		args = append(args, filter.GroupID)
	}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND a.date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND a.date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND a.status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}
	query += " ORDER BY a.date DESC, s.time_start ASC"

	records := []models.AttendanceDetail{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// LessonRoster returns every student of the lesson's group together with
// the attendance record for the date when one exists.
func (r *AttendanceRepository) LessonRoster(ctx context.Context, lessonID string, date time.Time) ([]models.LessonRosterEntry, error) {
	const query = `SELECT u.id AS student_id,
u.first_name || ' ' || u.last_name AS student_name,
a.id AS record_id, a.status, a.notes
FROM users u
INNER JOIN group_students gs ON gs.student_id = u.id
INNER JOIN schedule s ON s.group_id = gs.group_id
LEFT JOIN attendance a ON a.student_id = u.id AND a.lesson_id = s.id AND a.date = $2
WHERE s.id = $1
ORDER BY u.last_name ASC, u.first_name ASC`

	roster := []models.LessonRosterEntry{}
	if err := r.db.SelectContext(ctx, &roster, query, lessonID, date); err != nil {
		return nil, fmt.Errorf("lesson roster: %w", err)
	}
	return roster, nil
}

// Update modifies status and notes of an existing record.
func (r *AttendanceRepository) Update(ctx context.Context, id string, status models.AttendanceStatus, notes *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance SET status = $2, notes = $3, updated_at = $4 WHERE id = $1`,
		id, status, notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a record by id.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func dateRangeClause(query string, args []interface{}, column string, rng models.DateRange) (string, []interface{}) {
	if rng.From != nil {
		query += fmt.Sprintf(" AND %s >= $%d", column, len(args)+1)
		args = append(args, *rng.From)
	}
	if rng.To != nil {
		query += fmt.Sprintf(" AND %s <= $%d", column, len(args)+1)
		args = append(args, *rng.To)
	}
	return query, args
}

// StudentStats aggregates one student's attendance counts.
func (r *AttendanceRepository) StudentStats(ctx context.Context, studentID string, rng models.DateRange) (*models.AttendanceStats, error) {
	query := `SELECT COUNT(*) AS total_lessons,
COUNT(*) FILTER (WHERE status = 'present') AS present_count,
COUNT(*) FILTER (WHERE status = 'absent') AS absent_count,
COUNT(*) FILTER (WHERE status = 'late') AS late_count,
COUNT(*) FILTER (WHERE status = 'excused') AS excused_count,
ROUND(COUNT(*) FILTER (WHERE status = 'present')::numeric / NULLIF(COUNT(*), 0) * 100, 2) AS attendance_rate
FROM attendance WHERE student_id = $1`
	args := []interface{}{studentID}
	query, args = dateRangeClause(query, args, "date", rng)

	var stats models.AttendanceStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("student attendance stats: %w", err)
	}
	return &stats, nil
}

// GroupStats aggregates attendance for one group via its schedule.
func (r *AttendanceRepository) GroupStats(ctx context.Context, groupID string, rng models.DateRange) (*models.GroupAttendanceStats, error) {
	query := `SELECT g.id AS group_id, g.name AS group_name,
COUNT(DISTINCT a.student_id) AS students_count,
COUNT(a.id) AS total_records,
COUNT(*) FILTER (WHERE a.status = 'present') AS present_count,
COUNT(*) FILTER (WHERE a.status = 'absent') AS absent_count,
ROUND(COUNT(*) FILTER (WHERE a.status = 'present')::numeric / NULLIF(COUNT(a.id), 0) * 100, 2) AS attendance_rate
FROM groups g
LEFT JOIN schedule s ON s.group_id = g.id
LEFT JOIN attendance a ON a.lesson_id = s.id
WHERE g.id = $1`
	args := []interface{}{groupID}
	query, args = dateRangeClause(query, args, "a.date", rng)
	query += " GROUP BY g.id, g.name"

	var stats models.GroupAttendanceStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("group attendance stats: %w", err)
	}
	return &stats, nil
}

// GroupsStats aggregates attendance per group for the reporting views.
func (r *AttendanceRepository) GroupsStats(ctx context.Context, rng models.DateRange) ([]models.GroupAttendanceStats, error) {
	query := `SELECT g.id AS group_id, g.name AS group_name,
COUNT(DISTINCT gs.student_id) AS students_count,
COUNT(a.id) AS total_records,
COUNT(*) FILTER (WHERE a.status = 'present') AS present_count,
COUNT(*) FILTER (WHERE a.status = 'absent') AS absent_count,
ROUND(COUNT(*) FILTER (WHERE a.status = 'present')::numeric / NULLIF(COUNT(a.id), 0) * 100, 2) AS attendance_rate
FROM groups g
LEFT JOIN group_students gs ON gs.group_id = g.id
LEFT JOIN schedule s ON s.group_id = g.id
LEFT JOIN attendance a ON a.lesson_id = s.id
WHERE 1=1`
	var args []interface{}
	query, args = dateRangeClause(query, args, "a.date", rng)
	query += " GROUP BY g.id, g.name ORDER BY g.name ASC"

	stats := []models.GroupAttendanceStats{}
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("groups attendance stats: %w", err)
	}
	return stats, nil
}

// SubjectStats aggregates attendance for one subject via its schedule.
func (r *AttendanceRepository) SubjectStats(ctx context.Context, subjectID string, rng models.DateRange) (*models.SubjectAttendanceStats, error) {
	query := `SELECT subj.id AS subject_id, subj.name AS subject_name,
COUNT(a.id) AS total_records,
COUNT(*) FILTER (WHERE a.status = 'present') AS present_count,
COUNT(*) FILTER (WHERE a.status = 'absent') AS absent_count,
ROUND(COUNT(*) FILTER (WHERE a.status = 'present')::numeric / NULLIF(COUNT(a.id), 0) * 100, 2) AS attendance_rate
FROM subjects subj
LEFT JOIN schedule s ON s.subject_id = subj.id
LEFT JOIN attendance a ON a.lesson_id = s.id
WHERE subj.id = $1`
	args := []interface{}{subjectID}
	query, args = dateRangeClause(query, args, "a.date", rng)
	query += " GROUP BY subj.id, subj.name"

	var stats models.SubjectAttendanceStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("subject attendance stats: %w", err)
	}
	return &stats, nil
}

// SubjectsStats aggregates attendance per subject for the reporting views.
func (r *AttendanceRepository) SubjectsStats(ctx context.Context, rng models.DateRange) ([]models.SubjectAttendanceStats, error) {
	query := `SELECT subj.id AS subject_id, subj.name AS subject_name,
COUNT(a.id) AS total_records,
COUNT(*) FILTER (WHERE a.status = 'present') AS present_count,
COUNT(*) FILTER (WHERE a.status = 'absent') AS absent_count,
ROUND(COUNT(*) FILTER (WHERE a.status = 'present')::numeric / NULLIF(COUNT(a.id), 0) * 100, 2) AS attendance_rate
FROM subjects subj
LEFT JOIN schedule s ON s.subject_id = subj.id
LEFT JOIN attendance a ON a.lesson_id = s.id
WHERE 1=1`
	var args []interface{}
	query, args = dateRangeClause(query, args, "a.date", rng)
	query += " GROUP BY subj.id, subj.name ORDER BY subj.name ASC"

	stats := []models.SubjectAttendanceStats{}
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("subjects attendance stats: %w", err)
	}
	return stats, nil
}

// OverallStats returns the system-wide dashboard aggregate.
func (r *AttendanceRepository) OverallStats(ctx context.Context, rng models.DateRange) (*models.OverallStats, error) {
	query := `SELECT
(SELECT COUNT(*) FROM users WHERE role = 'student') AS students_count,
(SELECT COUNT(*) FROM users WHERE role = 'teacher') AS teachers_count,
(SELECT COUNT(*) FROM groups) AS groups_count,
(SELECT COUNT(*) FROM subjects) AS subjects_count,
(SELECT COUNT(*) FROM schedule) AS lessons_count,
COUNT(a.id) AS records_count,
ROUND(COUNT(*) FILTER (WHERE a.status = 'present')::numeric / NULLIF(COUNT(a.id), 0) * 100, 2) AS attendance_rate
FROM attendance a WHERE 1=1`
	var args []interface{}
	query, args = dateRangeClause(query, args, "a.date", rng)

	var stats models.OverallStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("overall attendance stats: %w", err)
	}
	return &stats, nil
}
