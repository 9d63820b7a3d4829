package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const marksColumns = "id, student_name, subject, score, class_label, exam_type, created_at, updated_at"

// MarksRepository handles persistence for marks records.
type MarksRepository struct {
	db *sqlx.DB
}

// NewMarksRepository constructs the repository.
func NewMarksRepository(db *sqlx.DB) *MarksRepository {
	return &MarksRepository{db: db}
}

// Create inserts a single marks record. A unique_student_marks violation
// bubbles to the caller for translation.
func (r *MarksRepository) Create(ctx context.Context, record *models.MarksRecord) (*models.MarksRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO marks_records (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING %s`, marksColumns, marksColumns)
	var stored models.MarksRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentName, record.Subject, record.Score,
		record.ClassLabel, record.ExamType, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create marks record: %w", err)
	}
	return &stored, nil
}

// InsertEach writes records one by one outside a transaction so every
// element succeeds or fails independently. Failed entries are returned with
// their reason; successful ones are returned as stored.
func (r *MarksRepository) InsertEach(ctx context.Context, records []models.MarksRecord) ([]models.MarksRecord, []models.MarksBatchFailure, error) {
	succeeded := make([]models.MarksRecord, 0, len(records))
	var failed []models.MarksBatchFailure
	for i := range records {
		stored, err := r.Create(ctx, &records[i])
		if err != nil {
			if IsUniqueViolation(err, ConstraintMarksUnique) {
				failed = append(failed, models.MarksBatchFailure{
					StudentName: records[i].StudentName,
					Reason:      "marks record already exists for this subject and exam type",
				})
				continue
			}
			return succeeded, failed, err
		}
		succeeded = append(succeeded, *stored)
	}
	return succeeded, failed, nil
}

// FindByID fetches a marks record by id.
func (r *MarksRepository) FindByID(ctx context.Context, id string) (*models.MarksRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM marks_records WHERE id = $1", marksColumns)
	var record models.MarksRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update applies partial updates restricted to score, subject and exam type.
func (r *MarksRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.MarksRecord, error) {
	if len(updates) == 0 {
		return r.FindByID(ctx, id)
	}
	sets := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+2)
	for column, value := range updates {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE marks_records SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), marksColumns)
	var record models.MarksRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByClassAndExam returns records for (class, exam type) with the given
// ordering, one of "subject" (subject then student) or "student" (student
// then subject).
func (r *MarksRepository) ListByClassAndExam(ctx context.Context, classLabel string, examType models.ExamType, orderBy string) ([]models.MarksRecord, error) {
	order := "subject, student_name"
	if orderBy == "student" {
		order = "student_name, subject"
	}
	query := fmt.Sprintf("SELECT %s FROM marks_records WHERE class_label = $1 AND exam_type = $2 ORDER BY %s", marksColumns, order)
	var records []models.MarksRecord
	if err := r.db.SelectContext(ctx, &records, query, classLabel, examType); err != nil {
		return nil, fmt.Errorf("list marks by class and exam: %w", err)
	}
	return records, nil
}
