package models

// ImportRow is one parsed spreadsheet row of a schedule import batch.
// Row carries the spreadsheet row number (header is row 1, data starts
// at row 2) so error reports point at the file the operator uploaded.
type ImportRow struct {
	Row         int
	SubjectName string
	SubjectType string
	Hours       int
	GroupName   string
	TeacherName string
	DayOfWeek   int
	TimeStart   string
	TimeEnd     string
	Room        string
	WeekType    WeekType
	LessonType  string
}

// ImportRowError reports one failed row.
type ImportRowError struct {
	Row       int              `json:"row"`
	Message   string           `json:"message"`
	Conflicts []LessonConflict `json:"conflicts,omitempty"`
}

// ImportRowWarning reports a non-fatal row issue found during validation.
type ImportRowWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ImportValidation is the result of the dry-run validation pass. It checks
// row shape only; unresolved entities and schedule conflicts surface during
// the real import.
type ImportValidation struct {
	Valid        bool               `json:"valid"`
	TotalRecords int                `json:"total_records"`
	NewRecords   int                `json:"new_records"`
	Errors       []ImportRowError   `json:"errors"`
	Warnings     []ImportRowWarning `json:"warnings"`
}

// ImportResult summarises a committed import batch.
type ImportResult struct {
	Imported int              `json:"imported"`
	Failed   int              `json:"failed"`
	Total    int              `json:"total"`
	Errors   []ImportRowError `json:"errors"`
}
