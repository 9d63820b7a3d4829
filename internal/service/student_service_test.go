package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/pkg/config"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

type studentRepoStub struct {
	students map[string]models.Student
	nextID   int
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{students: map[string]models.Student{}}
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	for _, existing := range r.students {
		if existing.RollNumber == student.RollNumber {
			return nil, &pq.Error{Code: "23505", Constraint: repository.ConstraintStudentRollNumber}
		}
		if existing.Email == student.Email {
			return nil, &pq.Error{Code: "23505", Constraint: repository.ConstraintStudentEmail}
		}
	}
	r.nextID++
	student.ID = "s-" + student.RollNumber
	r.students[student.ID] = *student
	return student, nil
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, student := range r.students {
		if filter.ClassLabel != "" && student.ClassLabel != filter.ClassLabel {
			continue
		}
		out = append(out, student)
	}
	return out, len(out), nil
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (r *studentRepoStub) FindByRollNumber(ctx context.Context, rollNumber string) (*models.Student, error) {
	for _, student := range r.students {
		if student.RollNumber == rollNumber {
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *studentRepoStub) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Student, error) {
	student, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if name, ok := updates["name"].(string); ok {
		student.Name = name
	}
	if class, ok := updates["class_label"].(string); ok {
		student.ClassLabel = class
	}
	if email, ok := updates["email"].(string); ok {
		student.Email = email
	}
	r.students[id] = student
	return &student, nil
}

func (r *studentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.students, id)
	return nil
}

func testReportsConfig() config.ReportsConfig {
	return config.ReportsConfig{PassMark: 45, ClassLabels: []string{"1", "2", "3", "4", "5"}}
}

func TestStudentCreate(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil, nil, testReportsConfig())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		Name:       "Student A",
		RollNumber: "R-001",
		ClassLabel: "5",
		Email:      "a@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
}

func TestStudentCreateUnknownClassLabel(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil, nil, testReportsConfig())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Name:       "Student A",
		RollNumber: "R-001",
		ClassLabel: "13",
		Email:      "a@example.com",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestStudentCreateDuplicateRollNumber(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil, nil, testReportsConfig())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Name:       "Student A",
		RollNumber: "R-001",
		ClassLabel: "5",
		Email:      "a@example.com",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateStudentRequest{
		Name:       "Student B",
		RollNumber: "R-001",
		ClassLabel: "5",
		Email:      "b@example.com",
	})
	assert.Equal(t, appErrors.ErrDuplicateRecord.Code, errorCode(t, err))
}

func TestStudentUpdatePartial(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil, nil, testReportsConfig())

	created, err := svc.Create(context.Background(), CreateStudentRequest{
		Name:       "Student A",
		RollNumber: "R-001",
		ClassLabel: "5",
		Email:      "a@example.com",
	})
	require.NoError(t, err)

	newName := "Student A Renamed"
	updated, err := svc.Update(context.Background(), created.ID, UpdateStudentRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, "R-001", updated.RollNumber)

	_, err = svc.Update(context.Background(), created.ID, UpdateStudentRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestStudentUpdateRejectsUnknownClassLabel(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil, nil, testReportsConfig())

	created, err := svc.Create(context.Background(), CreateStudentRequest{
		Name:       "Student A",
		RollNumber: "R-001",
		ClassLabel: "5",
		Email:      "a@example.com",
	})
	require.NoError(t, err)

	bogus := "zz"
	_, err = svc.Update(context.Background(), created.ID, UpdateStudentRequest{ClassLabel: &bogus})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestStudentDeleteNotFound(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil, nil, testReportsConfig())

	err := svc.Delete(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestStudentGetByRollNumber(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil, nil, testReportsConfig())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		Name:       "Student A",
		RollNumber: "R-001",
		ClassLabel: "5",
		Email:      "a@example.com",
	})
	require.NoError(t, err)

	student, err := svc.GetByRollNumber(context.Background(), "R-001")
	require.NoError(t, err)
	assert.Equal(t, "Student A", student.Name)

	_, err = svc.GetByRollNumber(context.Background(), "")
	assert.Equal(t, appErrors.ErrMissingField.Code, errorCode(t, err))
}
