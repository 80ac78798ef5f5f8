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

type mockAttendanceRepo struct {
	upserted   []*models.Attendance
	bulkCalls  int
	bulkFail   error
	records    map[string]models.AttendanceDetail
	updated    map[string]models.AttendanceStatus
	roster     []models.LessonRosterEntry
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	if record.ID == "" {
		record.ID = "new-record"
	}
	m.upserted = append(m.upserted, record)
	return record, nil
}

func (m *mockAttendanceRepo) BulkUpsert(ctx context.Context, lessonID string, date time.Time, entries []models.BulkAttendanceEntry) ([]models.Attendance, error) {
	m.bulkCalls++
	if m.bulkFail != nil {
		return nil, m.bulkFail
	}
	stored := make([]models.Attendance, 0, len(entries))
	for _, entry := range entries {
		stored = append(stored, models.Attendance{
			ID:        "att-" + entry.StudentID,
			LessonID:  lessonID,
			StudentID: entry.StudentID,
			Date:      date,
			Status:    entry.Status,
			Notes:     entry.Notes,
		})
	}
	return stored, nil
}

func (m *mockAttendanceRepo) FindByID(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	if record, ok := m.records[id]; ok {
		return &record, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	return nil, nil
}

func (m *mockAttendanceRepo) LessonRoster(ctx context.Context, lessonID string, date time.Time) ([]models.LessonRosterEntry, error) {
	return m.roster, nil
}

func (m *mockAttendanceRepo) Update(ctx context.Context, id string, status models.AttendanceStatus, notes *string) error {
	if _, ok := m.records[id]; !ok {
		return sql.ErrNoRows
	}
	if m.updated == nil {
		m.updated = map[string]models.AttendanceStatus{}
	}
	m.updated[id] = status
	return nil
}

func (m *mockAttendanceRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.records, id)
	return nil
}

func (m *mockAttendanceRepo) StudentStats(ctx context.Context, studentID string, rng models.DateRange) (*models.AttendanceStats, error) {
	return &models.AttendanceStats{}, nil
}

type mockLessonLookup struct {
	known map[string]bool
}

func (m *mockLessonLookup) FindByID(ctx context.Context, id string) (*models.LessonDetail, error) {
	if m.known[id] {
		return &models.LessonDetail{Lesson: models.Lesson{ID: id}}, nil
	}
	return nil, sql.ErrNoRows
}

func newAttendanceFixture() (*AttendanceService, *mockAttendanceRepo) {
	repo := &mockAttendanceRepo{records: map[string]models.AttendanceDetail{}}
	lessons := &mockLessonLookup{known: map[string]bool{"les-1": true}}
	return NewAttendanceService(repo, lessons, nil, nil), repo
}

func TestAttendanceServiceSave(t *testing.T) {
	svc, repo := newAttendanceFixture()

	record, err := svc.Save(context.Background(), SaveAttendanceRequest{
		LessonID:  "les-1",
		StudentID: "stu-1",
		Date:      "2025-09-15",
		Status:    models.AttendanceLate,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-record", record.ID)
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, models.AttendanceLate, repo.upserted[0].Status)
}

func TestAttendanceServiceSaveUnknownLesson(t *testing.T) {
	svc, repo := newAttendanceFixture()

	_, err := svc.Save(context.Background(), SaveAttendanceRequest{
		LessonID:  "les-404",
		StudentID: "stu-1",
		Date:      "2025-09-15",
		Status:    models.AttendancePresent,
	})
	require.Error(t, err)
	assert.Empty(t, repo.upserted)
}

func TestAttendanceServiceSaveRejectsBadStatus(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Save(context.Background(), SaveAttendanceRequest{
		LessonID:  "les-1",
		StudentID: "stu-1",
		Date:      "2025-09-15",
		Status:    "skipped",
	})
	require.Error(t, err)
}

func TestAttendanceServiceSaveRejectsBadDate(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Save(context.Background(), SaveAttendanceRequest{
		LessonID:  "les-1",
		StudentID: "stu-1",
		Date:      "15.09.2025",
		Status:    models.AttendancePresent,
	})
	require.Error(t, err)
}

func TestAttendanceServiceBulkSave(t *testing.T) {
	svc, repo := newAttendanceFixture()

	records, err := svc.BulkSave(context.Background(), BulkAttendanceRequest{
		LessonID: "les-1",
		Date:     "2025-09-15",
		Records: []models.BulkAttendanceEntry{
			{StudentID: "stu-1", Status: models.AttendancePresent},
			{StudentID: "stu-2", Status: models.AttendanceAbsent},
		},
	})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, repo.bulkCalls)
}

func TestAttendanceServiceBulkSaveRejectsEmptyBatch(t *testing.T) {
	svc, repo := newAttendanceFixture()

	_, err := svc.BulkSave(context.Background(), BulkAttendanceRequest{
		LessonID: "les-1",
		Date:     "2025-09-15",
		Records:  []models.BulkAttendanceEntry{},
	})
	require.Error(t, err)
	assert.Zero(t, repo.bulkCalls)
}

func TestAttendanceServiceBulkSaveRejectsBadStatusBeforeWrite(t *testing.T) {
	svc, repo := newAttendanceFixture()

	_, err := svc.BulkSave(context.Background(), BulkAttendanceRequest{
		LessonID: "les-1",
		Date:     "2025-09-15",
		Records: []models.BulkAttendanceEntry{
			{StudentID: "stu-1", Status: models.AttendancePresent},
			{StudentID: "stu-2", Status: "vanished"},
		},
	})
	require.Error(t, err)
	assert.Zero(t, repo.bulkCalls)
}

func TestAttendanceServiceUpdateNotFound(t *testing.T) {
	svc, _ := newAttendanceFixture()

	err := svc.Update(context.Background(), "att-404", UpdateAttendanceRequest{Status: models.AttendanceExcused})
	require.Error(t, err)
}

func TestAttendanceServiceLessonRosterIncludesUnmarked(t *testing.T) {
	repo := &mockAttendanceRepo{roster: []models.LessonRosterEntry{
		{StudentID: "stu-1", StudentName: "Ivan Orlov", RecordID: strPtr("att-1")},
		{StudentID: "stu-2", StudentName: "Anna Petrova"},
	}}
	lessons := &mockLessonLookup{known: map[string]bool{"les-1": true}}
	svc := NewAttendanceService(repo, lessons, nil, nil)

	roster, err := svc.LessonRoster(context.Background(), "les-1", "2025-09-15")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Nil(t, roster[1].RecordID)
}
