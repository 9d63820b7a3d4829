package models

import "time"

// ExamType is the categorical tag for a marks entry.
type ExamType string

const (
	ExamMidterm    ExamType = "midterm"
	ExamFinal      ExamType = "final"
	ExamAssignment ExamType = "assignment"
	ExamQuiz       ExamType = "quiz"
)

// Valid returns true when the exam type is a supported value.
func (e ExamType) Valid() bool {
	switch e {
	case ExamMidterm, ExamFinal, ExamAssignment, ExamQuiz:
		return true
	default:
		return false
	}
}

// MarksRecord is one student's score on one subject/exam. Scores are bounded
// to [0, 100]. At most one record exists per (student_name, subject,
// class_label, exam_type), enforced by the unique_student_marks constraint.
type MarksRecord struct {
	ID          string    `db:"id" json:"id"`
	StudentName string    `db:"student_name" json:"student_name"`
	Subject     string    `db:"subject" json:"subject"`
	Score       float64   `db:"score" json:"score"`
	ClassLabel  string    `db:"class_label" json:"class_label"`
	ExamType    ExamType  `db:"exam_type" json:"exam_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// MarksBatchFailure describes a single failed entry in a per-item batch.
type MarksBatchFailure struct {
	StudentName string `json:"student_name"`
	Reason      string `json:"reason"`
}

// MarksBatchResult reports the outcome of the per-item marks batch: each
// entry succeeds or fails independently, in contrast to the all-or-nothing
// attendance batch.
type MarksBatchResult struct {
	Succeeded []MarksRecord       `json:"succeeded"`
	Failed    []MarksBatchFailure `json:"failed,omitempty"`
}
