package models

import "time"

// AttendanceStatus marks a student present or absent on a day.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// AttendanceRecord is one student's presence on one calendar date. StudentID
// holds the roll number, the join key used throughout. StudentName is a
// display name cached at write time; renaming a student does not rewrite
// historical records. At most one record exists per (student_id, date),
// enforced by the unique_student_attendance constraint.
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	RollNumber  string           `db:"roll_number" json:"roll_number"`
	Date        time.Time        `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	ClassLabel  string           `db:"class_label" json:"class_label"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceConflict identifies an entry that collides with an existing
// (student, date) record.
type AttendanceConflict struct {
	RollNumber string `json:"roll_number"`
	Name       string `json:"name,omitempty"`
	Date       string `json:"date"`
}

// AttendanceBatchResult reports the outcome of the all-or-nothing attendance
// batch: either every record was written or none were. It is deliberately a
// different type from MarksBatchResult so the two failure models cannot be
// confused.
type AttendanceBatchResult struct {
	Created int `json:"created"`
}
