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

const groupDetailQuery = `SELECT g.id, g.name, g.course, g.specialty, g.curator_id, g.created_at, g.updated_at,
u.first_name || ' ' || u.last_name AS curator_name,
COUNT(gs.student_id) AS students_count
FROM groups g
LEFT JOIN users u ON u.id = g.curator_id
LEFT JOIN group_students gs ON gs.group_id = g.id`

const groupDetailGroupBy = ` GROUP BY g.id, u.first_name, u.last_name`

// GroupRepository provides persistence for student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns groups with curator name and enrollment counts.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, error) {
	query := groupDetailQuery + " WHERE 1=1"
	var args []interface{}

	if filter.Course != nil {
		query += fmt.Sprintf(" AND g.course = $%d", len(args)+1)
		args = append(args, *filter.Course)
	}
	if filter.CuratorID != "" {
		query += fmt.Sprintf(" AND g.curator_id = $%d", len(args)+1)
		args = append(args, filter.CuratorID)
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (g.name ILIKE $%d OR g.specialty ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}
	query += groupDetailGroupBy + " ORDER BY g.course ASC, g.name ASC"

	groups := []models.GroupDetail{}
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID loads a group with curator name and enrollment count.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	query := groupDetailQuery + " WHERE g.id = $1" + groupDetailGroupBy
	var group models.GroupDetail
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByName matches a group by exact name.
func (r *GroupRepository) FindByName(ctx context.Context, name string) (*models.Group, error) {
	const query = `SELECT id, name, course, specialty, curator_id, created_at, updated_at FROM groups WHERE name = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, name); err != nil {
		return nil, err
	}
	return &group, nil
}

// ExistsByName reports whether another group already claims the name.
func (r *GroupRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM groups WHERE name = $1"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id != $2"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"

	var one int
	err := r.db.GetContext(ctx, &one, query, args...)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check group name: %w", err)
	}
	return true, nil
}

// ListByTeacher returns groups reachable through a teacher's schedule.
func (r *GroupRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.GroupDetail, error) {
	const query = `SELECT g.id, g.name, g.course, g.specialty, g.curator_id, g.created_at, g.updated_at,
NULL AS curator_name,
COUNT(DISTINCT gs.student_id) AS students_count
FROM groups g
INNER JOIN schedule s ON s.group_id = g.id
LEFT JOIN group_students gs ON gs.group_id = g.id
WHERE s.teacher_id = $1
GROUP BY g.id
ORDER BY g.course ASC, g.name ASC`

	groups := []models.GroupDetail{}
	if err := r.db.SelectContext(ctx, &groups, query, teacherID); err != nil {
		return nil, fmt.Errorf("list groups by teacher: %w", err)
	}
	return groups, nil
}

// Create stores a new group record.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	const query = `INSERT INTO groups (id, name, course, specialty, curator_id, created_at, updated_at)
VALUES (:id, :name, :course, :specialty, :curator_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update modifies a group record.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE groups SET name = :name, course = :course, specialty = :specialty, curator_id = :curator_id, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, group)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a group by id.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListStudents returns the group's members ordered by name.
func (r *GroupRepository) ListStudents(ctx context.Context, groupID string) ([]models.GroupStudent, error) {
	const query = `SELECT u.id, u.first_name, u.last_name, u.email, gs.created_at AS added_at
FROM users u
INNER JOIN group_students gs ON gs.student_id = u.id
WHERE gs.group_id = $1
ORDER BY u.last_name ASC, u.first_name ASC`

	students := []models.GroupStudent{}
	if err := r.db.SelectContext(ctx, &students, query, groupID); err != nil {
		return nil, fmt.Errorf("list group students: %w", err)
	}
	return students, nil
}

// AddStudent enrolls a student into the group, idempotently.
func (r *GroupRepository) AddStudent(ctx context.Context, groupID, studentID string) error {
	const query = `INSERT INTO group_students (group_id, student_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (group_id, student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, groupID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add group student: %w", err)
	}
	return nil
}

// RemoveStudent removes a student from the group.
func (r *GroupRepository) RemoveStudent(ctx context.Context, groupID, studentID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM group_students WHERE group_id = $1 AND student_id = $2`, groupID, studentID)
	if err != nil {
		return fmt.Errorf("remove group student: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
