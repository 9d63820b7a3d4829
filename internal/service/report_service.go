package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/config"
	"github.com/noah-isme/school-admin-api/pkg/dates"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type reportAttendanceReader interface {
	ListByClassAndRange(ctx context.Context, classLabel string, window models.ReportWindow) ([]models.AttendanceRecord, error)
}

type reportMarksReader interface {
	ListByClassAndExam(ctx context.Context, classLabel string, examType models.ExamType, orderBy string) ([]models.MarksRecord, error)
}

type classCounter interface {
	CountByClass(ctx context.Context, classLabel string) (int, error)
}

// ReportService is the aggregation engine. All three reports are pure
// read/reduce steps over store snapshots: no mutation, deterministic for the
// same stored data, safe to re-run. The attendance and marks snapshots in
// the combined report are fetched without cross-collection isolation; a
// brief window of inconsistency between them is acceptable for reporting.
type ReportService struct {
	attendance reportAttendanceReader
	marks      reportMarksReader
	students   classCounter
	cache      *CacheService
	metrics    *MetricsService
	cfg        config.ReportsConfig
	logger     *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(attendance reportAttendanceReader, marks reportMarksReader, students classCounter, cache *CacheService, metrics *MetricsService, cfg config.ReportsConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PassMark <= 0 {
		cfg.PassMark = 45
	}
	return &ReportService{attendance: attendance, marks: marks, students: students, cache: cache, metrics: metrics, cfg: cfg, logger: logger}
}

// AttendanceReport aggregates attendance for a class over an inclusive date
// range. ClassSessionDays counts distinct dates carrying records, not the
// calendar span.
func (s *ReportService) AttendanceReport(ctx context.Context, classLabel, startRaw, endRaw string) (*models.AttendanceReport, error) {
	if classLabel == "" || startRaw == "" || endRaw == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "class_label, start_date and end_date are required")
	}
	window, err := resolveWindow(startRaw, endRaw)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("reports:attendance:%s:%s:%s", classLabel, dates.ISO(window.Start), dates.ISO(window.End))
	var cached models.AttendanceReport
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	totalStudents, err := s.countStudents(ctx, classLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count students")
	}
	if totalStudents == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoStudentsInClass, "no students found in class "+classLabel)
	}

	records, err := s.fetchAttendance(ctx, classLabel, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to fetch attendance records")
	}

	report := buildAttendanceReport(records, totalStudents)
	s.cache.Put(ctx, cacheKey, report, s.cfg.CacheTTL)
	return report, nil
}

// MarksReport aggregates per-subject score statistics for (class, exam
// type). An empty result set is a success with an explanatory message, not
// an error: "no data yet" is not a request error.
func (s *ReportService) MarksReport(ctx context.Context, classLabel, examTypeRaw string) (*models.MarksReport, error) {
	if classLabel == "" || examTypeRaw == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "class_label and exam_type are required")
	}
	examType := models.ExamType(strings.ToLower(examTypeRaw))
	if !examType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exam type: "+examTypeRaw)
	}

	cacheKey := fmt.Sprintf("reports:marks:%s:%s", classLabel, examType)
	var cached models.MarksReport
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	if err := s.requireStudents(ctx, classLabel); err != nil {
		return nil, err
	}

	records, err := s.fetchMarks(ctx, classLabel, examType, "subject")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to fetch marks records")
	}
	if len(records) == 0 {
		return &models.MarksReport{
			Records:    []models.MarksRecord{},
			Statistics: map[string]models.SubjectStatistics{},
			Message:    fmt.Sprintf("no marks found for class %s and exam type %s", classLabel, examType),
		}, nil
	}

	report := &models.MarksReport{
		Records:    records,
		Statistics: buildSubjectStatistics(records, s.cfg.PassMark),
	}
	s.cache.Put(ctx, cacheKey, report, s.cfg.CacheTTL)
	return report, nil
}

// CombinedReport merges attendance and marks into one per-student view over
// the union of student names present in either set. The per-student
// attendance denominator is that student's own record count, a deliberately
// different quantity from the class-wide session day count.
func (s *ReportService) CombinedReport(ctx context.Context, classLabel, examTypeRaw, startRaw, endRaw string) (*models.CombinedReport, error) {
	if classLabel == "" || examTypeRaw == "" || startRaw == "" || endRaw == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "class_label, exam_type, start_date and end_date are required")
	}
	examType := models.ExamType(strings.ToLower(examTypeRaw))
	if !examType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exam type: "+examTypeRaw)
	}
	window, err := resolveWindow(startRaw, endRaw)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("reports:combined:%s:%s:%s:%s", classLabel, examType, dates.ISO(window.Start), dates.ISO(window.End))
	var cached models.CombinedReport
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	totalStudents, err := s.countStudents(ctx, classLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count students")
	}
	if totalStudents == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoStudentsInClass, "no students found in class "+classLabel)
	}

	attendance, err := s.fetchAttendance(ctx, classLabel, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to fetch attendance records")
	}
	marks, err := s.fetchMarks(ctx, classLabel, examType, "student")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to fetch marks records")
	}
	if len(attendance) == 0 && len(marks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoDataFound, "no data found for class "+classLabel)
	}

	report := buildCombinedReport(attendance, marks, totalStudents, models.DateRange{Start: startRaw, End: endRaw}, examType)
	s.cache.Put(ctx, cacheKey, report, s.cfg.CacheTTL)
	return report, nil
}

func (s *ReportService) countStudents(ctx context.Context, classLabel string) (int, error) {
	start := time.Now()
	count, err := s.students.CountByClass(ctx, classLabel)
	s.metrics.ObserveDBQuery("report_class_count", time.Since(start))
	return count, err
}

func (s *ReportService) fetchAttendance(ctx context.Context, classLabel string, window models.ReportWindow) ([]models.AttendanceRecord, error) {
	start := time.Now()
	records, err := s.attendance.ListByClassAndRange(ctx, classLabel, window)
	s.metrics.ObserveDBQuery("report_attendance", time.Since(start))
	return records, err
}

func (s *ReportService) fetchMarks(ctx context.Context, classLabel string, examType models.ExamType, orderBy string) ([]models.MarksRecord, error) {
	start := time.Now()
	records, err := s.marks.ListByClassAndExam(ctx, classLabel, examType, orderBy)
	s.metrics.ObserveDBQuery("report_marks", time.Since(start))
	return records, err
}

func (s *ReportService) requireStudents(ctx context.Context, classLabel string) error {
	count, err := s.countStudents(ctx, classLabel)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count students")
	}
	if count == 0 {
		return appErrors.Clone(appErrors.ErrNoStudentsInClass, "no students found in class "+classLabel)
	}
	return nil
}

func resolveWindow(startRaw, endRaw string) (models.ReportWindow, error) {
	start, err := dates.Normalize(startRaw)
	if err != nil {
		return models.ReportWindow{}, err
	}
	end, err := dates.NormalizeEnd(endRaw)
	if err != nil {
		return models.ReportWindow{}, err
	}
	if end.Before(start) {
		return models.ReportWindow{}, appErrors.Clone(appErrors.ErrInvalidRange, "end date must not be before start date")
	}
	return models.ReportWindow{Start: start, End: end}, nil
}

func buildAttendanceReport(records []models.AttendanceRecord, totalStudents int) *models.AttendanceReport {
	rows := make([]models.AttendanceReportRow, len(records))
	distinctDates := make(map[string]struct{})
	presentCount := 0
	for i, record := range records {
		day := dates.ISO(record.Date)
		rows[i] = models.AttendanceReportRow{
			StudentName: record.StudentName,
			Date:        day,
			Status:      record.Status,
			ClassLabel:  record.ClassLabel,
		}
		distinctDates[day] = struct{}{}
		if record.Status == models.AttendancePresent {
			presentCount++
		}
	}

	stats := models.AttendanceStatistics{
		TotalStudents:    totalStudents,
		ClassSessionDays: len(distinctDates),
	}
	if stats.ClassSessionDays > 0 {
		stats.AverageAttendance = roundPercent(presentCount, totalStudents*stats.ClassSessionDays)
	}
	return &models.AttendanceReport{Records: rows, Statistics: stats}
}

func buildSubjectStatistics(records []models.MarksRecord, passMark float64) map[string]models.SubjectStatistics {
	type accumulator struct {
		total     float64
		count     int
		max       float64
		min       float64
		passCount int
		failCount int
	}
	acc := make(map[string]*accumulator)
	for _, record := range records {
		a, ok := acc[record.Subject]
		if !ok {
			a = &accumulator{max: math.Inf(-1), min: math.Inf(1)}
			acc[record.Subject] = a
		}
		a.total += record.Score
		a.count++
		a.max = math.Max(a.max, record.Score)
		a.min = math.Min(a.min, record.Score)
		if record.Score >= passMark {
			a.passCount++
		} else {
			a.failCount++
		}
	}

	stats := make(map[string]models.SubjectStatistics, len(acc))
	for subject, a := range acc {
		stats[subject] = models.SubjectStatistics{
			Count:          a.count,
			Average:        math.Round(a.total/float64(a.count)*100) / 100,
			Max:            a.max,
			Min:            a.min,
			PassCount:      a.passCount,
			FailCount:      a.failCount,
			PassPercentage: roundPercent(a.passCount, a.count),
		}
	}
	return stats
}

func buildCombinedReport(attendance []models.AttendanceRecord, marks []models.MarksRecord, totalStudents int, dateRange models.DateRange, examType models.ExamType) *models.CombinedReport {
	attendanceByStudent := make(map[string]*models.CombinedAttendance)
	for _, record := range attendance {
		entry, ok := attendanceByStudent[record.StudentName]
		if !ok {
			entry = &models.CombinedAttendance{}
			attendanceByStudent[record.StudentName] = entry
		}
		entry.RecordedDays++
		if record.Status == models.AttendancePresent {
			entry.PresentDays++
		}
	}

	marksByStudent := make(map[string]map[string]float64)
	for _, record := range marks {
		subjects, ok := marksByStudent[record.StudentName]
		if !ok {
			subjects = make(map[string]float64)
			marksByStudent[record.StudentName] = subjects
		}
		subjects[record.Subject] = record.Score
	}

	names := make(map[string]struct{}, len(attendanceByStudent)+len(marksByStudent))
	for name := range attendanceByStudent {
		names[name] = struct{}{}
	}
	for name := range marksByStudent {
		names[name] = struct{}{}
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	rows := make([]models.CombinedReportRow, 0, len(ordered))
	for _, name := range ordered {
		row := models.CombinedReportRow{StudentName: name, Marks: map[string]float64{}}
		if entry, ok := attendanceByStudent[name]; ok {
			row.Attendance = *entry
			if entry.RecordedDays > 0 {
				row.Attendance.AttendancePercentage = roundPercent(entry.PresentDays, entry.RecordedDays)
			}
		}
		if subjects, ok := marksByStudent[name]; ok {
			row.Marks = subjects
		}
		rows = append(rows, row)
	}

	return &models.CombinedReport{
		Records: rows,
		Summary: models.CombinedSummary{
			TotalStudents:    totalStudents,
			StudentsWithData: len(ordered),
			DateRange:        dateRange,
			ExamType:         examType,
		},
	}
}

// roundPercent computes round(100 * numerator / denominator).
func roundPercent(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return int(math.Round(float64(numerator) * 100 / float64(denominator)))
}
