package models

import "time"

// Subject represents a taught discipline.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      string    `db:"type" json:"type"`
	Hours     int       `db:"hours" json:"hours"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter describes query params for listing subjects.
type SubjectFilter struct {
	Type   string
	Search string
}
