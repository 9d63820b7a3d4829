package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/export"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

// ExportFormat selects the rendering backend for a report export.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered report ready to be written to a response.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

type reportProvider interface {
	AttendanceReport(ctx context.Context, classLabel, startRaw, endRaw string) (*models.AttendanceReport, error)
	MarksReport(ctx context.Context, classLabel, examTypeRaw string) (*models.MarksReport, error)
}

// ExportService renders reports as downloadable CSV or PDF documents. When
// an archive is provided, every rendered document is also kept on disk.
type ExportService struct {
	reports reportProvider
	archive *storage.ExportArchive
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs an ExportService instance. archive may be nil.
func NewExportService(reports reportProvider, archive *storage.ExportArchive, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports: reports,
		archive: archive,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// AttendanceReport renders the attendance report for a class and range.
func (s *ExportService) AttendanceReport(ctx context.Context, classLabel, startRaw, endRaw string, format ExportFormat) (*ExportResult, error) {
	report, err := s.reports.AttendanceReport(ctx, classLabel, startRaw, endRaw)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(report.Records))
	for _, record := range report.Records {
		rows = append(rows, []string{record.StudentName, record.Date, string(record.Status), record.ClassLabel})
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Attendance Report - Class %s (%s to %s)", classLabel, startRaw, endRaw),
		Headers: []string{"Student", "Date", "Status", "Class"},
		Rows:    rows,
	}
	return s.render(data, format, fmt.Sprintf("attendance-report-class-%s", classLabel))
}

// MarksReport renders the per-subject marks report for a class and exam.
func (s *ExportService) MarksReport(ctx context.Context, classLabel, examType string, format ExportFormat) (*ExportResult, error) {
	report, err := s.reports.MarksReport(ctx, classLabel, examType)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(report.Statistics))
	subjects := make([]string, 0, len(report.Statistics))
	for subject := range report.Statistics {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	for _, subject := range subjects {
		stats := report.Statistics[subject]
		rows = append(rows, []string{
			subject,
			strconv.Itoa(stats.Count),
			strconv.FormatFloat(stats.Average, 'f', 2, 64),
			strconv.FormatFloat(stats.Max, 'f', -1, 64),
			strconv.FormatFloat(stats.Min, 'f', -1, 64),
			strconv.Itoa(stats.PassCount),
			strconv.Itoa(stats.PassPercentage) + "%",
		})
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Marks Report - Class %s (%s)", classLabel, examType),
		Headers: []string{"Subject", "Count", "Average", "Max", "Min", "Passed", "Pass Rate"},
		Rows:    rows,
	}
	return s.render(data, format, fmt.Sprintf("marks-report-class-%s-%s", classLabel, examType))
}

func (s *ExportService) render(data export.Dataset, format ExportFormat, baseName string) (*ExportResult, error) {
	var result *ExportResult
	switch format {
	case FormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		result = &ExportResult{Content: content, ContentType: "text/csv", Filename: baseName + ".csv"}
	case FormatPDF:
		content, err := s.pdf.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		result = &ExportResult{Content: content, ContentType: "application/pdf", Filename: baseName + ".pdf"}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+string(format))
	}

	if s.archive != nil {
		if stored, err := s.archive.Store(result.Filename, result.Content); err != nil {
			s.logger.Warn("failed to archive export", zap.Error(err))
		} else {
			s.logger.Info("export archived", zap.String("file", stored))
		}
	}
	return result, nil
}
