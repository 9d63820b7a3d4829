package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-admin-api/internal/models"
)

const attendanceColumns = "id, student_id, student_name, roll_number, date, status, class_label, created_at, updated_at"

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a single attendance record. A unique_student_attendance
// violation bubbles to the caller for translation.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO attendance_records (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING %s`, attendanceColumns, attendanceColumns)
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentID, record.StudentName, record.RollNumber,
		record.Date, record.Status, record.ClassLabel, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create attendance record: %w", err)
	}
	return &stored, nil
}

// ExistsForStudentAndDate reports whether a record already exists for the
// (student, date) key.
func (r *AttendanceRepository) ExistsForStudentAndDate(ctx context.Context, studentID string, date time.Time) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM attendance_records WHERE student_id = $1 AND date = $2"
	if err := r.db.GetContext(ctx, &count, query, studentID, date); err != nil {
		return false, fmt.Errorf("check attendance record: %w", err)
	}
	return count > 0, nil
}

// ExistingStudentIDsForDate returns which of the given student ids already
// carry a record on the date. Used by the batch pre-check to shape the
// conflict payload; the store constraint remains the source of truth.
func (r *AttendanceRepository) ExistingStudentIDsForDate(ctx context.Context, date time.Time, studentIDs []string) ([]string, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := "SELECT student_id FROM attendance_records WHERE date = $1 AND student_id = ANY($2)"
	var existing []string
	if err := r.db.SelectContext(ctx, &existing, query, date, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("check existing attendance: %w", err)
	}
	return existing, nil
}

// BulkInsert writes all records in one transaction. Any failure, including a
// unique_student_attendance violation raised by a concurrent writer, rolls
// the whole batch back.
func (r *AttendanceRepository) BulkInsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk attendance: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	query := fmt.Sprintf(`INSERT INTO attendance_records (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, attendanceColumns)
	now := time.Now().UTC()
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, query,
			rec.ID, rec.StudentID, rec.StudentName, rec.RollNumber,
			rec.Date, rec.Status, rec.ClassLabel, rec.CreatedAt, rec.UpdatedAt); err != nil {
			return fmt.Errorf("bulk insert attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk attendance: %w", err)
	}
	committed = true
	return nil
}

// UpdateStatus changes only the status of an existing record.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance_records SET status = $1, updated_at = $2 WHERE id = $3 RETURNING %s`, attendanceColumns)
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, status, time.Now().UTC(), id); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListByDateAndClass returns records for one day and class.
func (r *AttendanceRepository) ListByDateAndClass(ctx context.Context, date time.Time, classLabel string) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE date = $1 AND class_label = $2 ORDER BY student_name", attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, date, classLabel); err != nil {
		return nil, fmt.Errorf("list attendance by date and class: %w", err)
	}
	return records, nil
}

// ListByClassAndRange returns records for a class inside the inclusive date
// window, sorted by date then student name.
func (r *AttendanceRepository) ListByClassAndRange(ctx context.Context, classLabel string, window models.ReportWindow) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE class_label = $1 AND date >= $2 AND date <= $3
ORDER BY date, student_name`, attendanceColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, classLabel, window.Start, window.End); err != nil {
		return nil, fmt.Errorf("list attendance by class and range: %w", err)
	}
	return records, nil
}
