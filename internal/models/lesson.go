package models

import "time"

// WeekType marks which alternating calendar week a recurring lesson occurs on.
type WeekType int

const (
	WeekTypeEvery WeekType = 0
	WeekTypeOdd   WeekType = 1
	WeekTypeEven  WeekType = 2
)

// Valid returns true when the week type is a supported value.
func (w WeekType) Valid() bool {
	return w == WeekTypeEvery || w == WeekTypeOdd || w == WeekTypeEven
}

// LessonType classifies a scheduled lesson.
type LessonType string

const (
	LessonTypeLecture  LessonType = "lecture"
	LessonTypePractice LessonType = "practice"
	LessonTypeLab      LessonType = "lab"
)

// Valid returns true when the lesson type is a supported value.
func (t LessonType) Valid() bool {
	switch t {
	case LessonTypeLecture, LessonTypePractice, LessonTypeLab:
		return true
	default:
		return false
	}
}

// Lesson is one recurring weekly slot in the schedule. Times are local
// times of day with minute precision, "HH:MM". DayOfWeek is ISO style,
// 1=Monday..7=Sunday. A lesson with WeekTypeEvery occurs in both parity
// cycles.
type Lesson struct {
	ID         string     `db:"id" json:"id"`
	SubjectID  string     `db:"subject_id" json:"subject_id"`
	GroupID    string     `db:"group_id" json:"group_id"`
	TeacherID  string     `db:"teacher_id" json:"teacher_id"`
	DayOfWeek  int        `db:"day_of_week" json:"day_of_week"`
	TimeStart  string     `db:"time_start" json:"time_start"`
	TimeEnd    string     `db:"time_end" json:"time_end"`
	Room       *string    `db:"room" json:"room,omitempty"`
	WeekType   WeekType   `db:"week_type" json:"week_type"`
	LessonType LessonType `db:"lesson_type" json:"lesson_type"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// LessonDetail extends Lesson with joined names for display.
type LessonDetail struct {
	Lesson
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
	GroupName   *string `db:"group_name" json:"group_name,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// DatedLesson is a recurring slot projected onto a concrete calendar date.
type DatedLesson struct {
	LessonDetail
	Date string `json:"date"`
}

// ScheduleFilter describes query params for listing the schedule.
// A nil WeekType returns all slots unfiltered by parity.
type ScheduleFilter struct {
	WeekType  *WeekType
	GroupID   string
	TeacherID string
	DayOfWeek *int
	SubjectID string
}

// ConflictType identifies the resource axis a conflict was found on.
type ConflictType string

const (
	ConflictTeacher ConflictType = "teacher"
	ConflictGroup   ConflictType = "group"
	ConflictRoom    ConflictType = "room"
)

// LessonConflict describes an existing lesson colliding with a candidate.
type LessonConflict struct {
	Type     ConflictType `json:"type"`
	LessonID string       `json:"lesson_id"`
	Subject  *string      `json:"subject,omitempty"`
	Group    *string      `json:"group,omitempty"`
	Teacher  *string      `json:"teacher,omitempty"`
	Time     string       `json:"time"`
	Room     *string      `json:"room,omitempty"`
}

// ConflictCandidate is the probe passed to the conflict detector.
type ConflictCandidate struct {
	TeacherID string
	GroupID   string
	DayOfWeek int
	TimeStart string
	TimeEnd   string
	Room      *string
}

// ScheduleConflictError is returned when a lesson collides with existing ones.
type ScheduleConflictError struct {
	Message   string           `json:"message"`
	Conflicts []LessonConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// ScheduleStats summarises slot counts for one parity cycle.
type ScheduleStats struct {
	TotalLessons  int `db:"total_lessons" json:"total_lessons"`
	TeachersCount int `db:"teachers_count" json:"teachers_count"`
	GroupsCount   int `db:"groups_count" json:"groups_count"`
	SubjectsCount int `db:"subjects_count" json:"subjects_count"`
}
