package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

type reportProviderStub struct {
	attendance *models.AttendanceReport
	marks      *models.MarksReport
	err        error
}

func (p *reportProviderStub) AttendanceReport(ctx context.Context, classLabel, startRaw, endRaw string) (*models.AttendanceReport, error) {
	return p.attendance, p.err
}

func (p *reportProviderStub) MarksReport(ctx context.Context, classLabel, examTypeRaw string) (*models.MarksReport, error) {
	return p.marks, p.err
}

func TestExportAttendanceCSV(t *testing.T) {
	provider := &reportProviderStub{attendance: &models.AttendanceReport{
		Records: []models.AttendanceReportRow{
			{StudentName: "Student A", Date: "2024-03-05", Status: models.AttendancePresent, ClassLabel: "5"},
			{StudentName: "Student B", Date: "2024-03-05", Status: models.AttendanceAbsent, ClassLabel: "5"},
		},
	}}
	svc := NewExportService(provider, nil, nil)

	result, err := svc.AttendanceReport(context.Background(), "5", "2024-03-01", "2024-03-31", FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "attendance-report-class-5.csv", result.Filename)
	assert.Contains(t, string(result.Content), "Student,Date,Status,Class")
	assert.Contains(t, string(result.Content), "Student A,2024-03-05,present,5")
	assert.Contains(t, string(result.Content), "Student B,2024-03-05,absent,5")
}

func TestExportMarksCSVSortsSubjects(t *testing.T) {
	provider := &reportProviderStub{marks: &models.MarksReport{
		Statistics: map[string]models.SubjectStatistics{
			"Science": {Count: 2, Average: 55.5, Max: 61, Min: 50, PassCount: 2, PassPercentage: 100},
			"Math":    {Count: 3, Average: 50, Max: 60, Min: 40, PassCount: 2, PassPercentage: 67},
		},
	}}
	svc := NewExportService(provider, nil, nil)

	result, err := svc.MarksReport(context.Background(), "5", "midterm", FormatCSV)
	require.NoError(t, err)

	content := string(result.Content)
	assert.Contains(t, content, "Math,3,50.00,60,40,2,67%")
	assert.Contains(t, content, "Science,2,55.50,61,50,2,100%")
	assert.Less(t, bytes.Index(result.Content, []byte("Math")), bytes.Index(result.Content, []byte("Science")))
}

func TestExportPDFRenders(t *testing.T) {
	provider := &reportProviderStub{attendance: &models.AttendanceReport{
		Records: []models.AttendanceReportRow{
			{StudentName: "Student A", Date: "2024-03-05", Status: models.AttendancePresent, ClassLabel: "5"},
		},
	}}
	svc := NewExportService(provider, nil, nil)

	result, err := svc.AttendanceReport(context.Background(), "5", "2024-03-01", "2024-03-31", FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	provider := &reportProviderStub{attendance: &models.AttendanceReport{}}
	svc := NewExportService(provider, nil, nil)

	_, err := svc.AttendanceReport(context.Background(), "5", "2024-03-01", "2024-03-31", ExportFormat("xlsx"))
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestExportPropagatesReportErrors(t *testing.T) {
	provider := &reportProviderStub{err: appErrors.Clone(appErrors.ErrNoStudentsInClass, "no students registered in class 9")}
	svc := NewExportService(provider, nil, nil)

	_, err := svc.AttendanceReport(context.Background(), "9", "2024-03-01", "2024-03-31", FormatCSV)
	assert.Equal(t, appErrors.ErrNoStudentsInClass.Code, errorCode(t, err))
}

func TestExportArchivesRenderedDocument(t *testing.T) {
	dir := t.TempDir()
	archive, err := storage.NewExportArchive(dir)
	require.NoError(t, err)

	provider := &reportProviderStub{attendance: &models.AttendanceReport{
		Records: []models.AttendanceReportRow{
			{StudentName: "Student A", Date: "2024-03-05", Status: models.AttendancePresent, ClassLabel: "5"},
		},
	}}
	svc := NewExportService(provider, archive, nil)

	_, err = svc.AttendanceReport(context.Background(), "5", "2024-03-01", "2024-03-31", FormatCSV)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".csv", filepath.Ext(entries[0].Name()))
}
