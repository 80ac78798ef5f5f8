package models

import "time"

// Group represents a student group.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Course    int       `db:"course" json:"course"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	CuratorID *string   `db:"curator_id" json:"curator_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GroupDetail extends Group with joined curator name and enrollment count.
type GroupDetail struct {
	Group
	CuratorName   *string `db:"curator_name" json:"curator_name,omitempty"`
	StudentsCount int     `db:"students_count" json:"students_count"`
}

// GroupFilter describes query params for listing groups.
type GroupFilter struct {
	Course    *int
	CuratorID string
	Search    string
}

// GroupStudent is a member of a group.
type GroupStudent struct {
	ID        string    `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	AddedAt   time.Time `db:"added_at" json:"added_at"`
}
