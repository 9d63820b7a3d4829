package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
)

func newMarksRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func marksRows(name string, score float64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "student_name", "subject", "score", "class_label", "exam_type", "created_at", "updated_at"}).
		AddRow("m1", name, "Math", score, "5", "midterm", now, now)
}

func TestMarksRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMarksRepoMock(t)
	defer cleanup()
	repo := NewMarksRepository(db)

	mock.ExpectQuery("INSERT INTO marks_records").
		WithArgs(sqlmock.AnyArg(), "Student A", "Math", 72.5, "5", models.ExamMidterm, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(marksRows("Student A", 72.5))

	stored, err := repo.Create(context.Background(), &models.MarksRecord{
		StudentName: "Student A",
		Subject:     "Math",
		Score:       72.5,
		ClassLabel:  "5",
		ExamType:    models.ExamMidterm,
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarksRepositoryInsertEachReportsDuplicatesPerRow(t *testing.T) {
	db, mock, cleanup := newMarksRepoMock(t)
	defer cleanup()
	repo := NewMarksRepository(db)

	conflict := &pq.Error{Code: "23505", Constraint: ConstraintMarksUnique}

	mock.ExpectQuery("INSERT INTO marks_records").
		WillReturnRows(marksRows("Student A", 40))
	mock.ExpectQuery("INSERT INTO marks_records").
		WillReturnError(conflict)
	mock.ExpectQuery("INSERT INTO marks_records").
		WillReturnRows(marksRows("Student C", 60))

	records := []models.MarksRecord{
		{StudentName: "Student A", Subject: "Math", Score: 40, ClassLabel: "5", ExamType: models.ExamMidterm},
		{StudentName: "Student B", Subject: "Math", Score: 50, ClassLabel: "5", ExamType: models.ExamMidterm},
		{StudentName: "Student C", Subject: "Math", Score: 60, ClassLabel: "5", ExamType: models.ExamMidterm},
	}

	succeeded, failed, err := repo.InsertEach(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, succeeded, 2)
	require.Len(t, failed, 1)
	assert.Equal(t, "Student B", failed[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarksRepositoryInsertEachAbortsOnStoreFailure(t *testing.T) {
	db, mock, cleanup := newMarksRepoMock(t)
	defer cleanup()
	repo := NewMarksRepository(db)

	mock.ExpectQuery("INSERT INTO marks_records").
		WillReturnError(context.DeadlineExceeded)

	records := []models.MarksRecord{
		{StudentName: "Student A", Subject: "Math", Score: 40, ClassLabel: "5", ExamType: models.ExamMidterm},
	}

	_, _, err := repo.InsertEach(context.Background(), records)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarksRepositoryListByClassAndExam(t *testing.T) {
	db, mock, cleanup := newMarksRepoMock(t)
	defer cleanup()
	repo := NewMarksRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM marks_records").
		WithArgs("5", models.ExamMidterm).
		WillReturnRows(marksRows("Student A", 72.5))

	records, err := repo.ListByClassAndExam(context.Background(), "5", models.ExamMidterm, "subject")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
