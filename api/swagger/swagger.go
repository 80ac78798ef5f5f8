package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Attendance API",
        "description": "Schedule and attendance management backend",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and tokens"},
        {"name": "Users", "description": "Account management"},
        {"name": "Groups", "description": "Student group roster"},
        {"name": "Subjects", "description": "Subject catalogue"},
        {"name": "Schedule", "description": "Recurring biweekly schedule"},
        {"name": "Import", "description": "Bulk schedule import from spreadsheets"},
        {"name": "Attendance", "description": "Per-lesson attendance journal"},
        {"name": "Reports", "description": "Statistics and exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current account",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List the recurring schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "week_type", "in": "query", "type": "string", "description": "Parity cycle 0, 1 or 2; current parity when omitted"},
                    {"name": "all", "in": "query", "type": "boolean"},
                    {"name": "group_id", "in": "query", "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "day_of_week", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedule"],
                "summary": "Create a lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LessonRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflicts, details carry the conflict list"}
                }
            }
        },
        "/schedule/today": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Today's lessons in the active parity cycle",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "teacher_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/month": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Project the schedule onto a calendar month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "month", "in": "query", "required": true, "type": "integer"},
                    {"name": "group_id", "in": "query", "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/check": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Dry-run conflict check for a candidate slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "exclude_id", "in": "query", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LessonRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/{id}": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get a lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Schedule"],
                "summary": "Update a lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LessonRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflicts, details carry the conflict list"}
                }
            },
            "delete": {
                "tags": ["Schedule"],
                "summary": "Delete a lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/import/validate": {
            "post": {
                "tags": ["Import"],
                "summary": "Validate a schedule spreadsheet without writing",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/import/schedule": {
            "post": {
                "tags": ["Import"],
                "summary": "Import a schedule spreadsheet",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/bulk": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Save attendance for a whole lesson",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/lesson/{lessonId}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Lesson roster with attendance for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "lessonId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export the attendance journal",
                "security": [{"BearerAuth": []}],
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "xlsx", "pdf"]},
                    {"name": "group_id", "in": "query", "type": "string"},
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "date_from", "in": "query", "type": "string"},
                    {"name": "date_to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "LessonRequest": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "string"},
                "group_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "day_of_week": {"type": "integer", "minimum": 1, "maximum": 7},
                "time_start": {"type": "string", "example": "08:30"},
                "time_end": {"type": "string", "example": "10:00"},
                "room": {"type": "string"},
                "week_type": {"type": "integer", "enum": [0, 1, 2]},
                "lesson_type": {"type": "string", "enum": ["lecture", "practice", "lab"]}
            },
            "required": ["subject_id", "group_id", "teacher_id", "day_of_week", "time_start", "time_end", "lesson_type"]
        },
        "BulkAttendanceRequest": {
            "type": "object",
            "properties": {
                "lesson_id": {"type": "string"},
                "date": {"type": "string", "example": "2025-09-01"},
                "records": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/AttendanceEntry"}
                }
            },
            "required": ["lesson_id", "date", "records"]
        },
        "AttendanceEntry": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "status": {"type": "string", "enum": ["present", "absent", "late", "excused"]},
                "notes": {"type": "string"}
            },
            "required": ["student_id", "status"]
        },
        "LessonConflict": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["teacher", "group", "room"]},
                "lesson_id": {"type": "string"},
                "subject": {"type": "string"},
                "group": {"type": "string"},
                "teacher": {"type": "string"},
                "time": {"type": "string", "example": "08:30-10:00"},
                "room": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "details": {"type": "object"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
