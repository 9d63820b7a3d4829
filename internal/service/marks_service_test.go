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
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

func duplicateMarksErr() error {
	return &pq.Error{Code: "23505", Constraint: repository.ConstraintMarksUnique}
}

type marksRepoStub struct {
	records map[string]models.MarksRecord
	nextID  int
}

func newMarksRepoStub() *marksRepoStub {
	return &marksRepoStub{records: map[string]models.MarksRecord{}}
}

func marksKey(rec models.MarksRecord) string {
	return rec.StudentName + "|" + rec.Subject + "|" + string(rec.ExamType)
}

func (r *marksRepoStub) Create(ctx context.Context, record *models.MarksRecord) (*models.MarksRecord, error) {
	key := marksKey(*record)
	if _, ok := r.records[key]; ok {
		return nil, duplicateMarksErr()
	}
	r.nextID++
	record.ID = "m-" + record.StudentName
	r.records[key] = *record
	return record, nil
}

func (r *marksRepoStub) InsertEach(ctx context.Context, records []models.MarksRecord) ([]models.MarksRecord, []models.MarksBatchFailure, error) {
	var succeeded []models.MarksRecord
	var failed []models.MarksBatchFailure
	for i := range records {
		stored, err := r.Create(ctx, &records[i])
		if err != nil {
			failed = append(failed, models.MarksBatchFailure{StudentName: records[i].StudentName, Reason: "duplicate"})
			continue
		}
		succeeded = append(succeeded, *stored)
	}
	return succeeded, failed, nil
}

func (r *marksRepoStub) FindByID(ctx context.Context, id string) (*models.MarksRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			return &rec, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *marksRepoStub) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.MarksRecord, error) {
	for key, rec := range r.records {
		if rec.ID != id {
			continue
		}
		if score, ok := updates["score"].(float64); ok {
			rec.Score = score
		}
		if subject, ok := updates["subject"].(string); ok {
			rec.Subject = subject
		}
		if examType, ok := updates["exam_type"].(models.ExamType); ok {
			rec.ExamType = examType
		}
		delete(r.records, key)
		r.records[marksKey(rec)] = rec
		return &rec, nil
	}
	return nil, sql.ErrNoRows
}

func (r *marksRepoStub) ListByClassAndExam(ctx context.Context, classLabel string, examType models.ExamType, orderBy string) ([]models.MarksRecord, error) {
	var out []models.MarksRecord
	for _, rec := range r.records {
		if rec.ClassLabel == classLabel && rec.ExamType == examType {
			out = append(out, rec)
		}
	}
	return out, nil
}

func scorePtr(v float64) *float64 { return &v }

func TestAddMarksValidRecord(t *testing.T) {
	svc := NewMarksService(newMarksRepoStub(), nil, nil, nil)

	record, err := svc.Add(context.Background(), AddMarksRequest{
		StudentName: "Student A",
		Subject:     "Math",
		Score:       scorePtr(72.5),
		ClassLabel:  "5",
		ExamType:    "Midterm",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExamMidterm, record.ExamType)
	assert.Equal(t, 72.5, record.Score)
}

func TestAddMarksBoundaryScores(t *testing.T) {
	svc := NewMarksService(newMarksRepoStub(), nil, nil, nil)

	for _, score := range []float64{0, 100} {
		_, err := svc.Add(context.Background(), AddMarksRequest{
			StudentName: "Student A",
			Subject:     "Math",
			Score:       scorePtr(score),
			ClassLabel:  "5",
			ExamType:    "final",
		})
		require.NoError(t, err, "score %v must be accepted", score)
		svc = NewMarksService(newMarksRepoStub(), nil, nil, nil)
	}

	for _, score := range []float64{-1, 100.5, 101} {
		_, err := svc.Add(context.Background(), AddMarksRequest{
			StudentName: "Student A",
			Subject:     "Math",
			Score:       scorePtr(score),
			ClassLabel:  "5",
			ExamType:    "final",
		})
		assert.Equal(t, appErrors.ErrOutOfRange.Code, errorCode(t, err), "score %v must be rejected", score)
	}
}

func TestAddMarksMissingScoreIsNotZero(t *testing.T) {
	svc := NewMarksService(newMarksRepoStub(), nil, nil, nil)

	_, err := svc.Add(context.Background(), AddMarksRequest{
		StudentName: "Student A",
		Subject:     "Math",
		ClassLabel:  "5",
		ExamType:    "final",
	})
	assert.Equal(t, appErrors.ErrMissingField.Code, errorCode(t, err))
}

func TestAddMarksDuplicate(t *testing.T) {
	svc := NewMarksService(newMarksRepoStub(), nil, nil, nil)

	req := AddMarksRequest{
		StudentName: "Student A",
		Subject:     "Math",
		Score:       scorePtr(60),
		ClassLabel:  "5",
		ExamType:    "quiz",
	}
	_, err := svc.Add(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), req)
	assert.Equal(t, appErrors.ErrDuplicateRecord.Code, errorCode(t, err))
}

func TestBatchAddReportsFailuresPerEntry(t *testing.T) {
	repo := newMarksRepoStub()
	svc := NewMarksService(repo, nil, nil, nil)

	_, err := svc.Add(context.Background(), AddMarksRequest{
		StudentName: "Student B",
		Subject:     "Math",
		Score:       scorePtr(55),
		ClassLabel:  "5",
		ExamType:    "midterm",
	})
	require.NoError(t, err)

	result, err := svc.BatchAdd(context.Background(), BatchMarksRequest{
		Subject:    "Math",
		ClassLabel: "5",
		ExamType:   "midterm",
		Records: []BatchMarksEntry{
			{Name: "Student A", Score: scorePtr(40)},
			{Name: "Student B", Score: scorePtr(50)},
			{Name: "Student C", Score: scorePtr(60)},
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Succeeded, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "Student B", result.Failed[0].StudentName)
}

func TestBatchAddRejectsOutOfRangeBeforeWriting(t *testing.T) {
	repo := newMarksRepoStub()
	svc := NewMarksService(repo, nil, nil, nil)

	_, err := svc.BatchAdd(context.Background(), BatchMarksRequest{
		Subject:    "Math",
		ClassLabel: "5",
		ExamType:   "midterm",
		Records: []BatchMarksEntry{
			{Name: "Student A", Score: scorePtr(40)},
			{Name: "Student B", Score: scorePtr(101)},
		},
	})
	assert.Equal(t, appErrors.ErrOutOfRange.Code, errorCode(t, err))
	assert.Empty(t, repo.records)
}

func TestUpdateMarksRestrictedFields(t *testing.T) {
	repo := newMarksRepoStub()
	svc := NewMarksService(repo, nil, nil, nil)

	record, err := svc.Add(context.Background(), AddMarksRequest{
		StudentName: "Student A",
		Subject:     "Math",
		Score:       scorePtr(40),
		ClassLabel:  "5",
		ExamType:    "midterm",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), record.ID, UpdateMarksRequest{Score: scorePtr(88)})
	require.NoError(t, err)
	assert.Equal(t, 88.0, updated.Score)

	_, err = svc.Update(context.Background(), record.ID, UpdateMarksRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	_, err = svc.Update(context.Background(), "missing", UpdateMarksRequest{Score: scorePtr(10)})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestUpdateMarksRejectsUnknownExamType(t *testing.T) {
	svc := NewMarksService(newMarksRepoStub(), nil, nil, nil)

	bogus := "pop-quiz"
	_, err := svc.Update(context.Background(), "m-1", UpdateMarksRequest{ExamType: &bogus})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}
