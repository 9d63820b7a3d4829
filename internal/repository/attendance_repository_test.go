package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func newAttendanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func attendanceRows(t time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "student_name", "roll_number", "date", "status", "class_label", "created_at", "updated_at"}).
		AddRow("a1", "R-001", "Student A", "R-001", t, "present", "5", t, t)
}

func TestAttendanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), "R-001", "Student A", "R-001", day, models.AttendancePresent, "5", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(attendanceRows(day))

	stored, err := repo.Create(context.Background(), &models.AttendanceRecord{
		StudentID:   "R-001",
		StudentName: "Student A",
		RollNumber:  "R-001",
		Date:        day,
		Status:      models.AttendancePresent,
		ClassLabel:  "5",
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryExistsForStudentAndDate(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_records WHERE student_id = $1 AND date = $2")).
		WithArgs("R-001", day).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsForStudentAndDate(context.Background(), "R-001", day)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkInsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	records := []models.AttendanceRecord{
		{StudentID: "R-001", StudentName: "A", RollNumber: "R-001", Date: day, Status: models.AttendancePresent, ClassLabel: "5"},
		{StudentID: "R-002", StudentName: "B", RollNumber: "R-002", Date: day, Status: models.AttendanceAbsent, ClassLabel: "5"},
	}

	conflict := &pq.Error{Code: "23505", Constraint: ConstraintAttendanceUnique}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnError(conflict)
	mock.ExpectRollback()

	err := repo.BulkInsert(context.Background(), records)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, ConstraintAttendanceUnique))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkInsertCommits(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	records := []models.AttendanceRecord{
		{StudentID: "R-001", StudentName: "A", RollNumber: "R-001", Date: day, Status: models.AttendancePresent, ClassLabel: "5"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.BulkInsert(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListByClassAndRange(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM attendance_records").
		WithArgs("5", start, end).
		WillReturnRows(attendanceRows(start))

	records, err := repo.ListByClassAndRange(context.Background(), "5", models.ReportWindow{Start: start, End: end})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	conflict := &pq.Error{Code: "23505", Constraint: ConstraintMarksUnique}

	assert.True(t, IsUniqueViolation(conflict, ConstraintMarksUnique))
	assert.True(t, IsUniqueViolation(conflict, ""))
	assert.False(t, IsUniqueViolation(conflict, ConstraintAttendanceUnique))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ConstraintMarksUnique))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ConstraintMarksUnique))
}
