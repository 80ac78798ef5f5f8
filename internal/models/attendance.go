package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// Attendance is one occurrence of a recurring lesson for one student on
// one concrete date. (lesson_id, student_id, date) is unique; repeated
// submissions overwrite status and notes.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	LessonID  string           `db:"lesson_id" json:"lesson_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail extends the record with student and lesson metadata.
type AttendanceDetail struct {
	Attendance
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
	GroupName   *string `db:"group_name" json:"group_name,omitempty"`
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
}

// AttendanceFilter scopes listing queries.
type AttendanceFilter struct {
	LessonID  string
	StudentID string
	GroupID   string
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    *AttendanceStatus
}

// LessonRosterEntry is one student of the lesson's group together with
// the attendance record for the requested date, when present.
type LessonRosterEntry struct {
	StudentID   string            `db:"student_id" json:"student_id"`
	StudentName string            `db:"student_name" json:"student_name"`
	RecordID    *string           `db:"record_id" json:"record_id,omitempty"`
	Status      *AttendanceStatus `db:"status" json:"status,omitempty"`
	Notes       *string           `db:"notes" json:"notes,omitempty"`
}

// BulkAttendanceEntry is one student's mark inside a bulk submission.
type BulkAttendanceEntry struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required"`
	Notes     *string          `json:"notes,omitempty"`
}

// AttendanceStats aggregates counts over a set of attendance records.
type AttendanceStats struct {
	TotalLessons   int      `db:"total_lessons" json:"total_lessons"`
	PresentCount   int      `db:"present_count" json:"present_count"`
	AbsentCount    int      `db:"absent_count" json:"absent_count"`
	LateCount      int      `db:"late_count" json:"late_count"`
	ExcusedCount   int      `db:"excused_count" json:"excused_count"`
	AttendanceRate *float64 `db:"attendance_rate" json:"attendance_rate,omitempty"`
}

// GroupAttendanceStats aggregates counts for one group.
type GroupAttendanceStats struct {
	GroupID        string   `db:"group_id" json:"group_id"`
	GroupName      string   `db:"group_name" json:"group_name"`
	StudentsCount  int      `db:"students_count" json:"students_count"`
	TotalRecords   int      `db:"total_records" json:"total_records"`
	PresentCount   int      `db:"present_count" json:"present_count"`
	AbsentCount    int      `db:"absent_count" json:"absent_count"`
	AttendanceRate *float64 `db:"attendance_rate" json:"attendance_rate,omitempty"`
}

// SubjectAttendanceStats aggregates counts for one subject.
type SubjectAttendanceStats struct {
	SubjectID      string   `db:"subject_id" json:"subject_id"`
	SubjectName    string   `db:"subject_name" json:"subject_name"`
	TotalRecords   int      `db:"total_records" json:"total_records"`
	PresentCount   int      `db:"present_count" json:"present_count"`
	AbsentCount    int      `db:"absent_count" json:"absent_count"`
	AttendanceRate *float64 `db:"attendance_rate" json:"attendance_rate,omitempty"`
}

// OverallStats is the system-wide dashboard aggregate.
type OverallStats struct {
	StudentsCount  int      `db:"students_count" json:"students_count"`
	TeachersCount  int      `db:"teachers_count" json:"teachers_count"`
	GroupsCount    int      `db:"groups_count" json:"groups_count"`
	SubjectsCount  int      `db:"subjects_count" json:"subjects_count"`
	LessonsCount   int      `db:"lessons_count" json:"lessons_count"`
	RecordsCount   int      `db:"records_count" json:"records_count"`
	AttendanceRate *float64 `db:"attendance_rate" json:"attendance_rate,omitempty"`
}

// DateRange bounds statistic queries; zero values mean unbounded.
type DateRange struct {
	From *time.Time
	To   *time.Time
}
