package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/service"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

// MarksHandler wires HTTP endpoints to the marks service.
type MarksHandler struct {
	service *service.MarksService
}

// NewMarksHandler creates a new handler.
func NewMarksHandler(svc *service.MarksService) *MarksHandler {
	return &MarksHandler{service: svc}
}

// Add godoc
// @Summary Add marks
// @Description Record a score for one student in one subject and exam
// @Tags Marks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.AddMarksRequest true "Marks payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /marks [post]
func (h *MarksHandler) Add(c *gin.Context) {
	var req service.AddMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid marks payload"))
		return
	}

	record, err := h.service.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// BatchAdd godoc
// @Summary Batch add marks
// @Description Record scores for many students. Rows are inserted independently and duplicates are reported per row.
// @Tags Marks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.BatchMarksRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /marks/batch [post]
func (h *MarksHandler) BatchAdd(c *gin.Context) {
	var req service.BatchMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	result, err := h.service.BatchAdd(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Update godoc
// @Summary Update marks
// @Description Change the score, subject or exam type of an existing marks record
// @Tags Marks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Marks record id"
// @Param payload body service.UpdateMarksRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /marks/{id} [patch]
func (h *MarksHandler) Update(c *gin.Context) {
	var req service.UpdateMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid marks payload"))
		return
	}

	record, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record)
}

// List godoc
// @Summary List marks
// @Description List marks records for a class and exam type
// @Tags Marks
// @Produce json
// @Security BearerAuth
// @Param class query string true "Class label"
// @Param exam_type query string true "Exam type"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /marks [get]
func (h *MarksHandler) List(c *gin.Context) {
	records, err := h.service.ListByClassAndExam(c.Request.Context(), c.Query("class"), c.Query("exam_type"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records)
}
