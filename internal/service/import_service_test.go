package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

type mockImportSubjects struct {
	byName  map[string]*models.Subject
	lookups int
	created []*models.Subject
}

func (m *mockImportSubjects) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	m.lookups++
	if subject, ok := m.byName[name]; ok {
		return subject, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockImportSubjects) Create(ctx context.Context, subject *models.Subject) error {
	if m.byName == nil {
		m.byName = map[string]*models.Subject{}
	}
	m.byName[subject.Name] = subject
	m.created = append(m.created, subject)
	return nil
}

type mockImportGroups struct {
	byName  map[string]*models.Group
	lookups int
}

func (m *mockImportGroups) FindByName(ctx context.Context, name string) (*models.Group, error) {
	m.lookups++
	if group, ok := m.byName[name]; ok {
		return group, nil
	}
	return nil, sql.ErrNoRows
}

type mockImportTeachers struct {
	byName map[string]*models.User
}

func (m *mockImportTeachers) FindTeacherByFullName(ctx context.Context, fullName string) (*models.User, error) {
	if teacher, ok := m.byName[fullName]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type mockImportLessons struct {
	created []*models.Lesson
}

func (m *mockImportLessons) Create(ctx context.Context, lesson *models.Lesson) error {
	m.created = append(m.created, lesson)
	return nil
}

type mockConflicts struct {
	conflictsFor map[string][]models.LessonConflict
}

func (m *mockConflicts) FindConflicts(ctx context.Context, candidate models.ConflictCandidate, excludeID string) ([]models.LessonConflict, error) {
	return m.conflictsFor[candidate.TimeStart], nil
}

func validImportRow(row int) models.ImportRow {
	return models.ImportRow{
		Row:         row,
		SubjectName: "Databases",
		GroupName:   "CS-201",
		TeacherName: "Anna Petrova",
		DayOfWeek:   2,
		TimeStart:   "09:00",
		TimeEnd:     "10:30",
		Room:        "201",
		WeekType:    models.WeekTypeEvery,
		LessonType:  "lecture",
	}
}

func newImportFixture() (*ImportService, *mockImportSubjects, *mockImportGroups, *mockImportLessons) {
	subjects := &mockImportSubjects{byName: map[string]*models.Subject{
		"Databases": {ID: "sub-1", Name: "Databases"},
	}}
	groups := &mockImportGroups{byName: map[string]*models.Group{
		"CS-201": {ID: "grp-1", Name: "CS-201"},
	}}
	teachers := &mockImportTeachers{byName: map[string]*models.User{
		"Anna Petrova": {ID: "tch-1", FirstName: "Anna", LastName: "Petrova", Role: models.RoleTeacher},
	}}
	lessons := &mockImportLessons{}
	svc := NewImportService(subjects, groups, teachers, lessons, &mockConflicts{}, nil)
	return svc, subjects, groups, lessons
}

func TestImportServiceValidateShapeOnly(t *testing.T) {
	svc, subjects, _, _ := newImportFixture()

	rows := []models.ImportRow{
		validImportRow(2),
		{Row: 3, SubjectName: "", GroupName: "CS-201", TeacherName: "Anna Petrova", DayOfWeek: 2, TimeStart: "09:00", TimeEnd: "10:30"},
		{Row: 4, SubjectName: "Algorithms", GroupName: "CS-999", TeacherName: "Nobody Here", DayOfWeek: 1, TimeStart: "11:00", TimeEnd: "12:30"},
	}
	result := svc.Validate(rows)

	assert.False(t, result.Valid)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 2, result.NewRecords)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	// Row 4 references unknown entities, which validation does not see.
	assert.Zero(t, subjects.lookups)

	var rowFourWarnings []string
	for _, w := range result.Warnings {
		if w.Row == 4 {
			rowFourWarnings = append(rowFourWarnings, w.Type)
		}
	}
	assert.Contains(t, rowFourWarnings, "missing_room")
}

func TestImportServicePartialFailure(t *testing.T) {
	svc, _, _, lessons := newImportFixture()

	bad := validImportRow(3)
	bad.GroupName = "CS-999"
	rows := []models.ImportRow{validImportRow(2), bad, validImportRow(4)}

	result, err := svc.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "not found")
	assert.Len(t, lessons.created, 2)
}

func TestImportServiceCreatesUnknownSubjects(t *testing.T) {
	svc, subjects, _, lessons := newImportFixture()

	row := validImportRow(2)
	row.SubjectName = "Compilers"
	row.SubjectType = "lecture"
	row.Hours = 72

	result, err := svc.Import(context.Background(), []models.ImportRow{row})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, subjects.created, 1)
	assert.Equal(t, "Compilers", subjects.created[0].Name)
	assert.Equal(t, 72, subjects.created[0].Hours)
	require.Len(t, lessons.created, 1)
	assert.Equal(t, subjects.created[0].ID, lessons.created[0].SubjectID)
}

func TestImportServiceMemoizesLookups(t *testing.T) {
	svc, subjects, groups, _ := newImportFixture()

	rows := make([]models.ImportRow, 0, 5)
	for i := 0; i < 5; i++ {
		row := validImportRow(i + 2)
		row.TimeStart = "09:00"
		rows = append(rows, row)
	}
	_, err := svc.Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, subjects.lookups)
	assert.Equal(t, 1, groups.lookups)
}

func TestImportServiceConflictFailsRow(t *testing.T) {
	subjects := &mockImportSubjects{byName: map[string]*models.Subject{"Databases": {ID: "sub-1", Name: "Databases"}}}
	groups := &mockImportGroups{byName: map[string]*models.Group{"CS-201": {ID: "grp-1", Name: "CS-201"}}}
	teachers := &mockImportTeachers{byName: map[string]*models.User{"Anna Petrova": {ID: "tch-1", Role: models.RoleTeacher}}}
	lessons := &mockImportLessons{}
	conflicts := &mockConflicts{conflictsFor: map[string][]models.LessonConflict{
		"09:00": {{Type: models.ConflictTeacher, LessonID: "les-1", Time: "09:00-10:30"}},
	}}
	svc := NewImportService(subjects, groups, teachers, lessons, conflicts, nil)

	clean := validImportRow(3)
	clean.TimeStart = "11:00"
	clean.TimeEnd = "12:30"

	result, err := svc.Import(context.Background(), []models.ImportRow{validImportRow(2), clean})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Row)
	require.Len(t, result.Errors[0].Conflicts, 1)
	assert.Equal(t, models.ConflictTeacher, result.Errors[0].Conflicts[0].Type)
	assert.Len(t, lessons.created, 1)
}

func TestImportServiceDefaultsLessonType(t *testing.T) {
	svc, _, _, lessons := newImportFixture()

	row := validImportRow(2)
	row.LessonType = ""
	_, err := svc.Import(context.Background(), []models.ImportRow{row})
	require.NoError(t, err)
	require.Len(t, lessons.created, 1)
	assert.Equal(t, models.LessonTypeLecture, lessons.created[0].LessonType)
}
