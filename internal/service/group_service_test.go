package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-attendance-api/internal/models"
)

type mockGroupRepo struct {
	groups  map[string]models.GroupDetail
	names   map[string]bool
	deleted []string
	added   [][2]string
	removed [][2]string
}

func (m *mockGroupRepo) List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, error) {
	return nil, nil
}

func (m *mockGroupRepo) FindByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	if group, ok := m.groups[id]; ok {
		return &group, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	return m.names[name], nil
}

func (m *mockGroupRepo) Create(ctx context.Context, group *models.Group) error {
	if m.groups == nil {
		m.groups = map[string]models.GroupDetail{}
	}
	m.groups[group.ID] = models.GroupDetail{Group: *group}
	return nil
}

func (m *mockGroupRepo) Update(ctx context.Context, group *models.Group) error {
	if _, ok := m.groups[group.ID]; !ok {
		return sql.ErrNoRows
	}
	detail := m.groups[group.ID]
	detail.Group = *group
	m.groups[group.ID] = detail
	return nil
}

func (m *mockGroupRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.groups[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.groups, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockGroupRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.GroupDetail, error) {
	return nil, nil
}

func (m *mockGroupRepo) ListStudents(ctx context.Context, groupID string) ([]models.GroupStudent, error) {
	return nil, nil
}

func (m *mockGroupRepo) AddStudent(ctx context.Context, groupID, studentID string) error {
	m.added = append(m.added, [2]string{groupID, studentID})
	return nil
}

func (m *mockGroupRepo) RemoveStudent(ctx context.Context, groupID, studentID string) error {
	m.removed = append(m.removed, [2]string{groupID, studentID})
	return nil
}

type mockUserLookup struct {
	users map[string]*models.User
}

func (m *mockUserLookup) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func newGroupFixture() (*GroupService, *mockGroupRepo) {
	repo := &mockGroupRepo{
		groups: map[string]models.GroupDetail{
			"grp-empty": {Group: models.Group{ID: "grp-empty", Name: "CS-101", Course: 1}},
			"grp-full":  {Group: models.Group{ID: "grp-full", Name: "CS-201", Course: 2}, StudentsCount: 24},
		},
		names: map[string]bool{"CS-101": true, "CS-201": true},
	}
	users := &mockUserLookup{users: map[string]*models.User{
		"stu-1": {ID: "stu-1", Role: models.RoleStudent},
		"tch-1": {ID: "tch-1", Role: models.RoleTeacher},
	}}
	return NewGroupService(repo, users, nil, nil), repo
}

func TestGroupServiceCreateDuplicateName(t *testing.T) {
	svc, _ := newGroupFixture()

	_, err := svc.Create(context.Background(), GroupRequest{Name: "CS-201", Course: 2})
	require.Error(t, err)
}

func TestGroupServiceDeleteGuardsEnrolledStudents(t *testing.T) {
	svc, repo := newGroupFixture()

	err := svc.Delete(context.Background(), "grp-full")
	require.Error(t, err)
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), "grp-empty"))
	assert.Equal(t, []string{"grp-empty"}, repo.deleted)
}

func TestGroupServiceAddStudentRejectsNonStudents(t *testing.T) {
	svc, repo := newGroupFixture()

	err := svc.AddStudent(context.Background(), "grp-empty", "tch-1")
	require.Error(t, err)
	assert.Empty(t, repo.added)

	require.NoError(t, svc.AddStudent(context.Background(), "grp-empty", "stu-1"))
	assert.Len(t, repo.added, 1)
}

func TestGroupServiceAddStudentUnknownGroup(t *testing.T) {
	svc, _ := newGroupFixture()

	err := svc.AddStudent(context.Background(), "grp-404", "stu-1")
	require.Error(t, err)
}
