package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
)

type groupRepository interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, error)
	FindByID(ctx context.Context, id string) (*models.GroupDetail, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
	ListByTeacher(ctx context.Context, teacherID string) ([]models.GroupDetail, error)
	ListStudents(ctx context.Context, groupID string) ([]models.GroupStudent, error)
	AddStudent(ctx context.Context, groupID, studentID string) error
	RemoveStudent(ctx context.Context, groupID, studentID string) error
}

type groupStudentLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// GroupRequest represents payload for creating and updating groups.
type GroupRequest struct {
	Name      string  `json:"name" validate:"required"`
	Course    int     `json:"course" validate:"required,min=1,max=6"`
	Specialty *string `json:"specialty"`
	CuratorID *string `json:"curator_id"`
}

// GroupService handles group management workflows.
type GroupService struct {
	repo      groupRepository
	users     groupStudentLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService creates an instance of GroupService.
func NewGroupService(repo groupRepository, users groupStudentLookup, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GroupService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns groups matching the filter.
func (s *GroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.GroupDetail, error) {
	groups, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// ListByTeacher returns groups a teacher reaches through the schedule.
func (s *GroupService) ListByTeacher(ctx context.Context, teacherID string) ([]models.GroupDetail, error) {
	groups, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher groups")
	}
	return groups, nil
}

// Get returns a group by ID.
func (s *GroupService) Get(ctx context.Context, id string) (*models.GroupDetail, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

// Create adds a new group. Names are unique.
func (s *GroupService) Create(ctx context.Context, req GroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrGroupExists, "")
	}

	group := &models.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Course:    req.Course,
		Specialty: req.Specialty,
		CuratorID: req.CuratorID,
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("name", group.Name))
	return group, nil
}

// Update modifies an existing group.
func (s *GroupService) Update(ctx context.Context, id string, req GroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrGroupExists, "")
	}

	group := current.Group
	group.Name = name
	group.Course = req.Course
	group.Specialty = req.Specialty
	group.CuratorID = req.CuratorID

	if err := s.repo.Update(ctx, &group); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	return &group, nil
}

// Delete removes an empty group. Groups with enrolled students are kept.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	group, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if group.StudentsCount > 0 {
		return appErrors.Clone(appErrors.ErrGroupHasStudents, "")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	s.logger.Info("group deleted", zap.String("group_id", id))
	return nil
}

// ListStudents returns a group's roster.
func (s *GroupService) ListStudents(ctx context.Context, groupID string) ([]models.GroupStudent, error) {
	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}
	students, err := s.repo.ListStudents(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group students")
	}
	return students, nil
}

// AddStudent enrolls a student into a group. Re-adding is a no-op.
func (s *GroupService) AddStudent(ctx context.Context, groupID, studentID string) error {
	if _, err := s.Get(ctx, groupID); err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if user.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrValidation, "user is not a student")
	}

	if err := s.repo.AddStudent(ctx, groupID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add student to group")
	}
	return nil
}

// RemoveStudent removes a student from a group.
func (s *GroupService) RemoveStudent(ctx context.Context, groupID, studentID string) error {
	if err := s.repo.RemoveStudent(ctx, groupID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this group")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student from group")
	}
	return nil
}
