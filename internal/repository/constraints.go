package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Named uniqueness constraints enforced by the store. These are the real
// source of truth for duplicate prevention; in-memory pre-checks only exist
// to produce friendlier error payloads.
const (
	ConstraintStudentRollNumber = "students_roll_number_key"
	ConstraintStudentEmail      = "students_email_key"
	ConstraintUserUsername      = "users_username_key"
	ConstraintUserEmail         = "users_email_key"
	ConstraintAttendanceUnique  = "unique_student_attendance"
	ConstraintMarksUnique       = "unique_student_marks"
)

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
