package models

import "time"

// Student is the academic identity record. Roll number and email are unique
// across the collection; the roll number doubles as the join key used by
// attendance and marks instead of the internal id.
type Student struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	RollNumber    string    `db:"roll_number" json:"roll_number"`
	ClassLabel    string    `db:"class_label" json:"class_label"`
	Email         string    `db:"email" json:"email"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Address       *string   `db:"address" json:"address,omitempty"`
	ParentName    *string   `db:"parent_name" json:"parent_name,omitempty"`
	ParentContact *string   `db:"parent_contact" json:"parent_contact,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	ClassLabel string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
