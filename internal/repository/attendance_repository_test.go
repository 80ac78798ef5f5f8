package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "lesson_id", "student_id", "date", "status", "notes", "created_at", "updated_at"})
}

func TestAttendanceRepositoryUpsertOverwrites(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (lesson_id, student_id, date)")).
		WithArgs(sqlmock.AnyArg(), "les-1", "stu-1", date, string(models.AttendanceLate), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(attendanceRows().
			AddRow("att-1", "les-1", "stu-1", date, string(models.AttendanceLate), nil, time.Now(), time.Now()))

	stored, err := repo.Upsert(context.Background(), &models.Attendance{
		LessonID:  "les-1",
		StudentID: "stu-1",
		Date:      date,
		Status:    models.AttendanceLate,
	})
	require.NoError(t, err)
	assert.Equal(t, "att-1", stored.ID)
	assert.Equal(t, models.AttendanceLate, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertCommits(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnRows(attendanceRows().
			AddRow("att-1", "les-1", "stu-1", date, string(models.AttendancePresent), nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnRows(attendanceRows().
			AddRow("att-2", "les-1", "stu-2", date, string(models.AttendanceAbsent), nil, time.Now(), time.Now()))
	mock.ExpectCommit()

	stored, err := repo.BulkUpsert(context.Background(), "les-1", date, []models.BulkAttendanceEntry{
		{StudentID: "stu-1", Status: models.AttendancePresent},
		{StudentID: "stu-2", Status: models.AttendanceAbsent},
	})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnRows(attendanceRows().
			AddRow("att-1", "les-1", "stu-1", date, string(models.AttendancePresent), nil, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO attendance")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.BulkUpsert(context.Background(), "les-1", date, []models.BulkAttendanceEntry{
		{StudentID: "stu-1", Status: models.AttendancePresent},
		{StudentID: "stu-2", Status: models.AttendanceAbsent},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "lesson_id", "student_id", "date", "status", "notes", "created_at", "updated_at",
		"student_name", "group_name", "subject_name",
	}).AddRow("att-1", "les-1", "stu-1", from, string(models.AttendancePresent), nil, time.Now(), time.Now(),
		"Ivan Orlov", "CS-201", "Databases")
	mock.ExpectQuery(regexp.QuoteMeta("a.student_id = $1 AND a.date >= $2")).
		WithArgs("stu-1", from).
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.AttendanceFilter{StudentID: "stu-1", DateFrom: &from})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "CS-201", *list[0].GroupName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryLessonRoster(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "student_name", "record_id", "status", "notes"}).
		AddRow("stu-1", "Ivan Orlov", "att-1", string(models.AttendancePresent), nil).
		AddRow("stu-2", "Anna Petrova", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("INNER JOIN group_students gs ON gs.student_id = u.id")).
		WithArgs("les-1", date).
		WillReturnRows(rows)

	roster, err := repo.LessonRoster(context.Background(), "les-1", date)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Nil(t, roster[1].RecordID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance SET status = $2")).
		WithArgs("att-404", string(models.AttendanceExcused), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "att-404", models.AttendanceExcused, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStudentStats(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rate := 85.71
	rows := sqlmock.NewRows([]string{"total_lessons", "present_count", "absent_count", "late_count", "excused_count", "attendance_rate"}).
		AddRow(14, 12, 1, 1, 0, rate)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	stats, err := repo.StudentStats(context.Background(), "stu-1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 14, stats.TotalLessons)
	require.NotNil(t, stats.AttendanceRate)
	assert.InDelta(t, rate, *stats.AttendanceRate, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryOverallStatsEmpty(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	rows := sqlmock.NewRows([]string{"students_count", "teachers_count", "groups_count", "subjects_count", "lessons_count", "records_count", "attendance_rate"}).
		AddRow(0, 0, 0, 0, 0, 0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance a WHERE 1=1")).
		WillReturnRows(rows)

	stats, err := repo.OverallStats(context.Background(), models.DateRange{})
	require.NoError(t, err)
	assert.Zero(t, stats.RecordsCount)
	assert.Nil(t, stats.AttendanceRate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
