package models

import "time"

// Instructor is a read-only directory entry; the roster is owned by the
// campus HR system and only consumed here for assignment.
type Instructor struct {
	ID        string    `db:"id" json:"id"`
	NIP       string    `db:"nip" json:"nip"`
	FullName  string    `db:"full_name" json:"full_name"`
	Program   string    `db:"program" json:"program"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorFilter captures directory listing criteria.
type InstructorFilter struct {
	Program string
	Search  string
	Active  *bool
	Limit   int
	Offset  int
}
