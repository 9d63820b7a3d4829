package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const studentColumns = "id, name, roll_number, class_label, email, phone, address, parent_name, parent_contact, created_at, updated_at"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO students (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING %s`, studentColumns, studentColumns)
	var stored models.Student
	if err := r.db.GetContext(ctx, &stored, query,
		student.ID, student.Name, student.RollNumber, student.ClassLabel, student.Email,
		student.Phone, student.Address, student.ParentName, student.ParentContact,
		student.CreatedAt, student.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return &stored, nil
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassLabel != "" {
		conditions = append(conditions, fmt.Sprintf("class_label = $%d", len(args)+1))
		args = append(args, filter.ClassLabel)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(roll_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	whereClause := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":        "name",
		"roll_number": "roll_number",
		"created_at":  "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentColumns, whereClause, column, order, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by internal id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByRollNumber fetches a student by roll number.
func (r *StudentRepository) FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE roll_number = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, rollNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByRollNumbers resolves a set of roll numbers in one lookup.
func (r *StudentRepository) FindByRollNumbers(ctx context.Context, rollNumbers []string) ([]models.Student, error) {
	if len(rollNumbers) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM students WHERE roll_number = ANY($1) ORDER BY roll_number", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(rollNumbers)); err != nil {
		return nil, fmt.Errorf("find students by roll numbers: %w", err)
	}
	return students, nil
}

// CountByClass returns the number of registered students in a class.
func (r *StudentRepository) CountByClass(ctx context.Context, classLabel string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students WHERE class_label = $1", classLabel); err != nil {
		return 0, fmt.Errorf("count students by class: %w", err)
	}
	return total, nil
}

// Update applies partial updates to a student row.
func (r *StudentRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Student, error) {
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

	query := fmt.Sprintf("UPDATE students SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		return nil, err
	}
	return &student, nil
}

// Delete removes a student row.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
