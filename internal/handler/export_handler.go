package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// ExportHandler serves downloadable report documents.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Attendance godoc
// @Summary Export attendance report
// @Description Download the attendance report as CSV or PDF
// @Tags Exports
// @Produce octet-stream
// @Security BearerAuth
// @Param class query string true "Class label"
// @Param start_date query string true "Range start"
// @Param end_date query string true "Range end"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/attendance/export [get]
func (h *ExportHandler) Attendance(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.service.AttendanceReport(c.Request.Context(),
		c.Query("class"), c.Query("start_date"), c.Query("end_date"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	writeAttachment(c, result)
}

// Marks godoc
// @Summary Export marks report
// @Description Download the marks report as CSV or PDF
// @Tags Exports
// @Produce octet-stream
// @Security BearerAuth
// @Param class query string true "Class label"
// @Param exam_type query string true "Exam type"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/marks/export [get]
func (h *ExportHandler) Marks(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.service.MarksReport(c.Request.Context(),
		c.Query("class"), c.Query("exam_type"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	writeAttachment(c, result)
}

func writeAttachment(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
