package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/pkg/dates"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type attendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	ExistsForStudentAndDate(ctx context.Context, studentID string, date time.Time) (bool, error)
	ExistingStudentIDsForDate(ctx context.Context, date time.Time, studentIDs []string) ([]string, error)
	BulkInsert(ctx context.Context, records []models.AttendanceRecord) error
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.AttendanceRecord, error)
	ListByDateAndClass(ctx context.Context, date time.Time, classLabel string) ([]models.AttendanceRecord, error)
}

type studentResolver interface {
	FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
	FindByRollNumbers(ctx context.Context, rollNumbers []string) ([]models.Student, error)
}

// AttendanceService coordinates attendance ingestion. The batch path is
// all-or-nothing: a single conflicting entry aborts the entire write.
type AttendanceService struct {
	repo      attendanceRepository
	students  studentResolver
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, students studentResolver, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{repo: repo, students: students, cache: cache, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// MarkRequest describes the single-record ingestion payload.
type MarkRequest struct {
	RollNumber string `json:"roll_number"`
	Date       string `json:"date"`
	Status     string `json:"status" validate:"omitempty,attendance_status"`
	Name       string `json:"name"`
	ClassLabel string `json:"class_label"`
}

// BatchEntry is one row of the batch ingestion payload.
type BatchEntry struct {
	RollNumber string `json:"roll_number"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// BatchMarkRequest describes the batch ingestion payload.
type BatchMarkRequest struct {
	Date       string       `json:"date"`
	ClassLabel string       `json:"class_label"`
	Records    []BatchEntry `json:"records"`
}

// UpdateStatusRequest changes only the status of an existing record.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
}

// Mark validates and writes a single attendance record.
func (s *AttendanceService) Mark(ctx context.Context, req MarkRequest) (*models.AttendanceRecord, error) {
	if req.RollNumber == "" || req.Date == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "roll_number and date fields are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := dates.Normalize(req.Date)
	if err != nil {
		return nil, err
	}
	status := models.AttendanceStatus(strings.ToLower(req.Status))
	if req.Status == "" {
		status = models.AttendancePresent
	}

	exists, err := s.repo.ExistsForStudentAndDate(ctx, req.RollNumber, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check existing attendance")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "attendance record already exists for this roll number on the specified date")
	}

	name := req.Name
	classLabel := req.ClassLabel
	if name == "" || classLabel == "" {
		student, err := s.students.FindByRollNumber(ctx, req.RollNumber)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no student found for roll number "+req.RollNumber)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to resolve student")
		}
		if name == "" {
			name = student.Name
		}
		if classLabel == "" {
			classLabel = student.ClassLabel
		}
	}

	record := &models.AttendanceRecord{
		StudentID:   req.RollNumber,
		StudentName: name,
		RollNumber:  req.RollNumber,
		Date:        date,
		Status:      status,
		ClassLabel:  classLabel,
	}
	stored, err := s.repo.Create(ctx, record)
	if err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintAttendanceUnique) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "attendance record already exists for this roll number on the specified date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create attendance record")
	}
	s.invalidateReports(ctx)
	return stored, nil
}

// BatchMark validates and writes a batch of attendance records for one day
// and class. The write is all-or-nothing: validation failures, unresolved
// roll numbers and duplicate conflicts each abort the batch before or during
// the single transactional insert.
func (s *AttendanceService) BatchMark(ctx context.Context, req BatchMarkRequest) (*models.AttendanceBatchResult, error) {
	if req.Date == "" || req.ClassLabel == "" || len(req.Records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "date, class_label and records are required")
	}
	date, err := dates.Normalize(req.Date)
	if err != nil {
		return nil, err
	}
	for _, entry := range req.Records {
		if entry.RollNumber == "" || entry.Name == "" || entry.Status == "" {
			return nil, appErrors.Clone(appErrors.ErrMissingField, "some records are missing required fields (roll_number, name, status)")
		}
		if !models.AttendanceStatus(strings.ToLower(entry.Status)).Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance status: "+entry.Status)
		}
	}

	rollNumbers := distinctRollNumbers(req.Records)
	students, err := s.students.FindByRollNumbers(ctx, rollNumbers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to resolve students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoStudentsFound, "no students found for the provided roll numbers")
	}
	if len(students) != len(rollNumbers) {
		missing := missingRollNumbers(rollNumbers, students)
		return nil, appErrors.Clone(appErrors.ErrStudentsNotFound, "students not found for roll numbers: "+strings.Join(missing, ", "))
	}
	nameByRoll := make(map[string]string, len(students))
	for _, student := range students {
		nameByRoll[student.RollNumber] = student.Name
	}

	// Pre-check shapes a conflict list for the caller; the store constraint
	// still guards against concurrent writers landing between here and the
	// transactional insert below.
	existing, err := s.repo.ExistingStudentIDsForDate(ctx, date, rollNumbers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check existing attendance")
	}
	if len(existing) > 0 {
		return nil, s.duplicateBatchError(req, existing, req.Date)
	}

	seen := make(map[string]struct{}, len(req.Records))
	records := make([]models.AttendanceRecord, 0, len(req.Records))
	for _, entry := range req.Records {
		if _, dup := seen[entry.RollNumber]; dup {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "duplicate roll number in payload: "+entry.RollNumber)
		}
		seen[entry.RollNumber] = struct{}{}
		records = append(records, models.AttendanceRecord{
			StudentID:   entry.RollNumber,
			StudentName: nameByRoll[entry.RollNumber],
			RollNumber:  entry.RollNumber,
			Date:        date,
			Status:      models.AttendanceStatus(strings.ToLower(entry.Status)),
			ClassLabel:  req.ClassLabel,
		})
	}

	if err := s.repo.BulkInsert(ctx, records); err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintAttendanceUnique) {
			// A concurrent writer created a colliding key after the pre-check.
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateRecord.Code, appErrors.ErrDuplicateRecord.Status,
				"attendance records already exist for "+dates.ISO(date))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "bulk attendance write failed")
	}
	s.logger.Info("attendance batch recorded",
		zap.String("class", req.ClassLabel),
		zap.String("date", dates.ISO(date)),
		zap.Int("records", len(records)))
	s.invalidateReports(ctx)
	return &models.AttendanceBatchResult{Created: len(records)}, nil
}

// UpdateStatus changes only the status field of an existing record.
func (s *AttendanceService) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	stored, err := s.repo.UpdateStatus(ctx, id, models.AttendanceStatus(strings.ToLower(req.Status)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update attendance record")
	}
	s.invalidateReports(ctx)
	return stored, nil
}

// ListByDateAndClass returns records for one day and class.
func (s *AttendanceService) ListByDateAndClass(ctx context.Context, dateStr, classLabel string) ([]models.AttendanceRecord, error) {
	date, err := dates.Normalize(dateStr)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListByDateAndClass(ctx, date, classLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list attendance")
	}
	return records, nil
}

func (s *AttendanceService) duplicateBatchError(req BatchMarkRequest, existing []string, rawDate string) error {
	existingSet := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		existingSet[id] = struct{}{}
	}
	conflicts := make([]models.AttendanceConflict, 0, len(existing))
	for _, entry := range req.Records {
		if _, ok := existingSet[entry.RollNumber]; ok {
			conflicts = append(conflicts, models.AttendanceConflict{
				RollNumber: entry.RollNumber,
				Name:       entry.Name,
				Date:       rawDate,
			})
		}
	}
	parts := make([]string, len(conflicts))
	for i, c := range conflicts {
		parts[i] = c.RollNumber
	}
	return appErrors.Clone(appErrors.ErrDuplicateRecord,
		"attendance records already exist for the selected date: "+strings.Join(parts, ", "))
}

func (s *AttendanceService) invalidateReports(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "reports:*"); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}

func distinctRollNumbers(entries []BatchEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.RollNumber]; ok {
			continue
		}
		seen[entry.RollNumber] = struct{}{}
		result = append(result, entry.RollNumber)
	}
	sort.Strings(result)
	return result
}

func missingRollNumbers(requested []string, found []models.Student) []string {
	foundSet := make(map[string]struct{}, len(found))
	for _, student := range found {
		foundSet[student.RollNumber] = struct{}{}
	}
	var missing []string
	for _, roll := range requested {
		if _, ok := foundSet[roll]; !ok {
			missing = append(missing, roll)
		}
	}
	return missing
}
