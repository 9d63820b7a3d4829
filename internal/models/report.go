package models

import "time"

// AttendanceReportRow is one attendance record projected for reporting.
type AttendanceReportRow struct {
	StudentName string           `json:"student_name"`
	Date        string           `json:"date"`
	Status      AttendanceStatus `json:"status"`
	ClassLabel  string           `json:"class_label"`
}

// AttendanceStatistics summarises a class over a date range.
// ClassSessionDays counts distinct dates carrying at least one record, not
// the calendar span; the per-student denominator in the combined report is
// a different concept (see CombinedAttendance.RecordedDays).
type AttendanceStatistics struct {
	TotalStudents     int `json:"total_students"`
	ClassSessionDays  int `json:"class_session_days"`
	AverageAttendance int `json:"average_attendance"`
}

// AttendanceReport is the attendance report payload.
type AttendanceReport struct {
	Records    []AttendanceReportRow `json:"records"`
	Statistics AttendanceStatistics  `json:"statistics"`
}

// SubjectStatistics aggregates scores for one subject.
type SubjectStatistics struct {
	Count          int     `json:"count"`
	Average        float64 `json:"average"`
	Max            float64 `json:"max"`
	Min            float64 `json:"min"`
	PassCount      int     `json:"pass_count"`
	FailCount      int     `json:"fail_count"`
	PassPercentage int     `json:"pass_percentage"`
}

// MarksReport is the marks report payload. Message is populated instead of
// an error when no records exist yet for the requested scope.
type MarksReport struct {
	Records    []MarksRecord                `json:"records"`
	Statistics map[string]SubjectStatistics `json:"statistics"`
	Message    string                       `json:"message,omitempty"`
}

// CombinedAttendance is the per-student attendance slice of a combined row.
// RecordedDays counts that student's own records inside the range, which is
// a different denominator from AttendanceStatistics.ClassSessionDays.
type CombinedAttendance struct {
	RecordedDays         int `json:"recorded_days"`
	PresentDays          int `json:"present_days"`
	AttendancePercentage int `json:"attendance_percentage"`
}

// CombinedReportRow merges one student's attendance and marks.
type CombinedReportRow struct {
	StudentName string             `json:"student_name"`
	Attendance  CombinedAttendance `json:"attendance"`
	Marks       map[string]float64 `json:"marks"`
}

// DateRange echoes the requested report bounds.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CombinedSummary summarises a combined report.
type CombinedSummary struct {
	TotalStudents    int       `json:"total_students"`
	StudentsWithData int       `json:"students_with_data"`
	DateRange        DateRange `json:"date_range"`
	ExamType         ExamType  `json:"exam_type"`
}

// CombinedReport is the combined report payload.
type CombinedReport struct {
	Records []CombinedReportRow `json:"records"`
	Summary CombinedSummary     `json:"summary"`
}

// ReportWindow is a resolved date range used by store queries. End is
// inclusive through end-of-day.
type ReportWindow struct {
	Start time.Time
	End   time.Time
}
