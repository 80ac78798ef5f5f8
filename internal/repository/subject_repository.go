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

const subjectColumns = `id, name, type, hours, created_at, updated_at`

// SubjectRepository provides persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects matching the filter, ordered by name.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE 1=1", subjectColumns)
	var args []interface{}

	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", len(args)+1)
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", len(args)+1)
		args = append(args, "%"+filter.Search+"%")
	}
	query += " ORDER BY name ASC"

	subjects := []models.Subject{}
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID loads a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindByName matches a subject by exact name.
func (r *SubjectRepository) FindByName(ctx context.Context, name string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE name = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, name); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ExistsByName reports whether another subject already claims the name.
func (r *SubjectRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM subjects WHERE name = $1"
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
		return false, fmt.Errorf("check subject name: %w", err)
	}
	return true, nil
}

// ListByTeacher returns subjects the teacher has scheduled lessons for.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error) {
	const query = `SELECT DISTINCT subj.id, subj.name, subj.type, subj.hours, subj.created_at, subj.updated_at
FROM subjects subj
INNER JOIN schedule s ON s.subject_id = subj.id
WHERE s.teacher_id = $1
ORDER BY subj.name ASC`

	subjects := []models.Subject{}
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list subjects by teacher: %w", err)
	}
	return subjects, nil
}

// Create stores a new subject record.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, name, type, hours, created_at, updated_at)
VALUES (:id, :name, :type, :hours, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies a subject record.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, type = :type, hours = :hours, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a subject by id.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
