package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type marksRepository interface {
	Create(ctx context.Context, record *models.MarksRecord) (*models.MarksRecord, error)
	InsertEach(ctx context.Context, records []models.MarksRecord) ([]models.MarksRecord, []models.MarksBatchFailure, error)
	FindByID(ctx context.Context, id string) (*models.MarksRecord, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*models.MarksRecord, error)
	ListByClassAndExam(ctx context.Context, classLabel string, examType models.ExamType, orderBy string) ([]models.MarksRecord, error)
}

// ScoreMin and ScoreMax bound every marks entry.
const (
	ScoreMin = 0
	ScoreMax = 100
)

// MarksService coordinates marks ingestion. The batch path is per-item: each
// entry succeeds or fails independently, unlike the attendance batch.
type MarksService struct {
	repo      marksRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarksService constructs the marks service.
func NewMarksService(repo marksRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *MarksService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MarksService{repo: repo, cache: cache, validator: validate, logger: logger}
	_ = svc.validator.RegisterValidation("exam_type", func(fl validator.FieldLevel) bool {
		return models.ExamType(strings.ToLower(fl.Field().String())).Valid()
	})
	return svc
}

// AddMarksRequest is the single-record ingestion payload. Score is a pointer
// so an absent field is distinguishable from a legitimate zero.
type AddMarksRequest struct {
	StudentName string   `json:"student_name"`
	Subject     string   `json:"subject"`
	Score       *float64 `json:"score"`
	ClassLabel  string   `json:"class_label"`
	ExamType    string   `json:"exam_type" validate:"omitempty,exam_type"`
}

// BatchMarksEntry is one row of the batch payload.
type BatchMarksEntry struct {
	Name  string   `json:"name"`
	Score *float64 `json:"score"`
}

// BatchMarksRequest shares subject, class and exam type across its entries.
type BatchMarksRequest struct {
	Subject    string            `json:"subject"`
	ClassLabel string            `json:"class_label"`
	ExamType   string            `json:"exam_type" validate:"omitempty,exam_type"`
	Records    []BatchMarksEntry `json:"records"`
}

// UpdateMarksRequest permits changing score, subject or exam type only.
type UpdateMarksRequest struct {
	Score    *float64 `json:"score"`
	Subject  *string  `json:"subject"`
	ExamType *string  `json:"exam_type"`
}

// Add validates and writes a single marks record.
func (s *MarksService) Add(ctx context.Context, req AddMarksRequest) (*models.MarksRecord, error) {
	if req.StudentName == "" || req.Subject == "" || req.Score == nil || req.ClassLabel == "" || req.ExamType == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "student_name, subject, score, class_label and exam_type are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if *req.Score < ScoreMin || *req.Score > ScoreMax {
		return nil, appErrors.Clone(appErrors.ErrOutOfRange, "score must be between 0 and 100")
	}

	record := &models.MarksRecord{
		StudentName: req.StudentName,
		Subject:     req.Subject,
		Score:       *req.Score,
		ClassLabel:  req.ClassLabel,
		ExamType:    models.ExamType(strings.ToLower(req.ExamType)),
	}
	stored, err := s.repo.Create(ctx, record)
	if err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintMarksUnique) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "marks record already exists for this student, subject and exam type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to add marks")
	}
	s.invalidateReports(ctx)
	return stored, nil
}

// BatchAdd writes one record per entry sharing subject, class and exam type.
// Inserts are unordered: a duplicate entry is reported in the result without
// blocking the others.
func (s *MarksService) BatchAdd(ctx context.Context, req BatchMarksRequest) (*models.MarksBatchResult, error) {
	if req.Subject == "" || req.ClassLabel == "" || req.ExamType == "" || len(req.Records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "subject, class_label, exam_type and records are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	records := make([]models.MarksRecord, 0, len(req.Records))
	for _, entry := range req.Records {
		if entry.Name == "" || entry.Score == nil {
			return nil, appErrors.Clone(appErrors.ErrMissingField, "each record requires name and score")
		}
		if *entry.Score < ScoreMin || *entry.Score > ScoreMax {
			return nil, appErrors.Clone(appErrors.ErrOutOfRange, "score must be between 0 and 100")
		}
		records = append(records, models.MarksRecord{
			StudentName: entry.Name,
			Subject:     req.Subject,
			Score:       *entry.Score,
			ClassLabel:  req.ClassLabel,
			ExamType:    models.ExamType(strings.ToLower(req.ExamType)),
		})
	}

	succeeded, failed, err := s.repo.InsertEach(ctx, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "bulk marks write failed")
	}
	s.logger.Info("marks batch recorded",
		zap.String("class", req.ClassLabel),
		zap.String("subject", req.Subject),
		zap.Int("succeeded", len(succeeded)),
		zap.Int("failed", len(failed)))
	if len(succeeded) > 0 {
		s.invalidateReports(ctx)
	}
	return &models.MarksBatchResult{Succeeded: succeeded, Failed: failed}, nil
}

// Update changes score, subject or exam type of an existing record.
func (s *MarksService) Update(ctx context.Context, id string, req UpdateMarksRequest) (*models.MarksRecord, error) {
	updates := map[string]interface{}{}
	if req.Score != nil {
		if *req.Score < ScoreMin || *req.Score > ScoreMax {
			return nil, appErrors.Clone(appErrors.ErrOutOfRange, "score must be between 0 and 100")
		}
		updates["score"] = *req.Score
	}
	if req.Subject != nil {
		if *req.Subject == "" {
			return nil, appErrors.Clone(appErrors.ErrMissingField, "subject must not be empty")
		}
		updates["subject"] = *req.Subject
	}
	if req.ExamType != nil {
		examType := models.ExamType(strings.ToLower(*req.ExamType))
		if !examType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exam type: "+*req.ExamType)
		}
		updates["exam_type"] = examType
	}
	if len(updates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid fields to update")
	}

	stored, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "marks record not found")
		}
		if repository.IsUniqueViolation(err, repository.ConstraintMarksUnique) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "marks record already exists for this student, subject and exam type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update marks record")
	}
	s.invalidateReports(ctx)
	return stored, nil
}

// ListByClassAndExam returns records for (class, exam type) sorted by
// student name then subject.
func (s *MarksService) ListByClassAndExam(ctx context.Context, classLabel, examTypeRaw string) ([]models.MarksRecord, error) {
	examType := models.ExamType(strings.ToLower(examTypeRaw))
	if !examType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exam type: "+examTypeRaw)
	}
	records, err := s.repo.ListByClassAndExam(ctx, classLabel, examType, "student")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list marks")
	}
	return records, nil
}

func (s *MarksService) invalidateReports(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "reports:*"); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}
