package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Attendance godoc
// @Summary Attendance report
// @Description Class attendance records and statistics over a date range
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param class query string true "Class label"
// @Param start_date query string true "Range start (YYYY-MM-DD or DD-MM-YYYY)"
// @Param end_date query string true "Range end (YYYY-MM-DD or DD-MM-YYYY)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	report, err := h.service.AttendanceReport(c.Request.Context(),
		c.Query("class"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report)
}

// Marks godoc
// @Summary Marks report
// @Description Class marks records and per subject statistics for an exam
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param class query string true "Class label"
// @Param exam_type query string true "Exam type"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/marks [get]
func (h *ReportHandler) Marks(c *gin.Context) {
	report, err := h.service.MarksReport(c.Request.Context(), c.Query("class"), c.Query("exam_type"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// An empty scope is not an error here. The body still says success:false
	// so list-driven clients can short-circuit without parsing statistics.
	if report.Message != "" {
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, response.Envelope{Success: false, Message: report.Message, Data: report})
		return
	}

	response.JSON(c, http.StatusOK, report)
}

// Combined godoc
// @Summary Combined report
// @Description Per student attendance and marks merged over a date range and exam
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param class query string true "Class label"
// @Param exam_type query string true "Exam type"
// @Param start_date query string true "Range start (YYYY-MM-DD or DD-MM-YYYY)"
// @Param end_date query string true "Range end (YYYY-MM-DD or DD-MM-YYYY)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/combined [get]
func (h *ReportHandler) Combined(c *gin.Context) {
	report, err := h.service.CombinedReport(c.Request.Context(),
		c.Query("class"), c.Query("exam_type"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report)
}
