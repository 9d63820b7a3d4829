package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/pkg/config"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Student, error)
	Delete(ctx context.Context, id string) error
}

// StudentService provides student roster use cases.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.ReportsConfig
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg config.ReportsConfig) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger, cfg: cfg}
}

// CreateStudentRequest is the payload for adding a student to the roster.
type CreateStudentRequest struct {
	Name          string  `json:"name" validate:"required"`
	RollNumber    string  `json:"roll_number" validate:"required"`
	ClassLabel    string  `json:"class_label" validate:"required"`
	Email         string  `json:"email" validate:"required,email"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	ParentName    *string `json:"parent_name,omitempty"`
	ParentContact *string `json:"parent_contact,omitempty"`
}

// UpdateStudentRequest carries a partial update. Nil fields are untouched.
type UpdateStudentRequest struct {
	Name          *string `json:"name,omitempty"`
	RollNumber    *string `json:"roll_number,omitempty"`
	ClassLabel    *string `json:"class_label,omitempty"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	ParentName    *string `json:"parent_name,omitempty"`
	ParentContact *string `json:"parent_contact,omitempty"`
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !s.classLabelKnown(req.ClassLabel) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown class label: "+req.ClassLabel)
	}

	student := &models.Student{
		Name:          req.Name,
		RollNumber:    req.RollNumber,
		ClassLabel:    req.ClassLabel,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		ParentName:    req.ParentName,
		ParentContact: req.ParentContact,
	}

	stored, err := s.repo.Create(ctx, student)
	if err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintStudentRollNumber) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "roll number already exists")
		}
		if repository.IsUniqueViolation(err, repository.ConstraintStudentEmail) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student created",
		zap.String("student_id", stored.ID),
		zap.String("roll_number", stored.RollNumber),
		zap.String("class_label", stored.ClassLabel))

	s.invalidateReports(ctx)
	return stored, nil
}

// List returns a page of students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	return students, pagination, nil
}

// Get fetches one student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetByRollNumber fetches one student by roll number.
func (s *StudentService) GetByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	if rollNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "roll_number is required")
	}
	student, err := s.repo.FindByRollNumber(ctx, rollNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Update applies a partial update to a student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.RollNumber != nil {
		updates["roll_number"] = *req.RollNumber
	}
	if req.ClassLabel != nil {
		if !s.classLabelKnown(*req.ClassLabel) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown class label: "+*req.ClassLabel)
		}
		updates["class_label"] = *req.ClassLabel
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.ParentName != nil {
		updates["parent_name"] = *req.ParentName
	}
	if req.ParentContact != nil {
		updates["parent_contact"] = *req.ParentContact
	}
	if len(updates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}

	stored, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if repository.IsUniqueViolation(err, repository.ConstraintStudentRollNumber) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "roll number already exists")
		}
		if repository.IsUniqueViolation(err, repository.ConstraintStudentEmail) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRecord, "email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	s.invalidateReports(ctx)
	return stored, nil
}

// Delete removes a student from the roster. Attendance and marks rows keep
// their denormalized name and roll number and are left in place.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidateReports(ctx)
	return nil
}

func (s *StudentService) classLabelKnown(label string) bool {
	if len(s.cfg.ClassLabels) == 0 {
		return true
	}
	for _, known := range s.cfg.ClassLabels {
		if known == label {
			return true
		}
	}
	return false
}

func (s *StudentService) invalidateReports(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "reports:*"); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
}
