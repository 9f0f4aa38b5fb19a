// Package handlers implements the HTTP handlers of the assessment API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cloudsentry/posture/internal/application/dto"
	"github.com/cloudsentry/posture/internal/application/service"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

// AssessmentHandler serves the assessment pipeline endpoints.
type AssessmentHandler struct {
	assessments service.AssessmentService
	logger      logger.Logger
}

// NewAssessmentHandler creates the assessment handler.
func NewAssessmentHandler(assessments service.AssessmentService, log logger.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		assessments: assessments,
		logger:      log.WithComponent("assessment-handler"),
	}
}

// Create runs a new assessment for a customer.
// POST /api/v1/assessments
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req dto.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(c.Request.Context(), "Invalid create assessment request", logger.Err(err))
		dto.SendError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}

	result, err := h.assessments.CreateAssessment(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err, "create_assessment")
		return
	}
	dto.SendCreated(c, result)
}

// Save upserts an assessment.
// POST /api/v1/assessments/save
func (h *AssessmentHandler) Save(c *gin.Context) {
	var req dto.SaveAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(c.Request.Context(), "Invalid save assessment request", logger.Err(err))
		dto.SendError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}

	result, err := h.assessments.SaveAssessment(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err, "save_assessment")
		return
	}
	dto.SendSuccess(c, http.StatusOK, result)
}

// List returns persisted assessments, most recent first.
// GET /api/v1/assessments?customerId=&tenantId=&limit=&offset=
func (h *AssessmentHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit")
	offset := queryInt(c, "offset")

	assessments, err := h.assessments.ListAssessments(
		c.Request.Context(),
		c.Query("customerId"),
		c.Query("tenantId"),
		limit,
		offset,
	)
	if err != nil {
		h.handleError(c, err, "list_assessments")
		return
	}
	dto.SendSuccess(c, http.StatusOK, assessments)
}

// History returns the score trend rows.
// GET /api/v1/assessments/history?tenantId=&customerId=&limit=
func (h *AssessmentHandler) History(c *gin.Context) {
	query := dto.HistoryQuery{
		TenantID:   c.Query("tenantId"),
		CustomerID: c.Query("customerId"),
		Limit:      queryInt(c, "limit"),
	}
	if query.TenantID == "" && query.CustomerID == "" {
		dto.SendError(c, errors.ErrInvalidRequest("tenantId or customerId is required"))
		return
	}

	rows, err := h.assessments.GetHistory(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err, "assessment_history")
		return
	}
	dto.SendSuccess(c, http.StatusOK, rows)
}

// LatestMetrics returns the most recent metrics for a tenant, zeroed when the
// tenant has no assessment yet.
// GET /api/v1/metrics/latest?tenantId=
func (h *AssessmentHandler) LatestMetrics(c *gin.Context) {
	resp, err := h.assessments.GetLatestMetrics(c.Request.Context(), c.Query("tenantId"))
	if err != nil {
		h.handleError(c, err, "latest_metrics")
		return
	}
	dto.SendSuccess(c, http.StatusOK, resp)
}

func (h *AssessmentHandler) handleError(c *gin.Context, err error, operation string) {
	if appErr, ok := errors.AsAppError(err); ok {
		h.logger.Warn(c.Request.Context(), "Assessment operation failed",
			logger.String("operation", operation),
			logger.String("error_code", string(appErr.Code)),
			logger.Err(err),
		)
	} else {
		h.logger.Error(c.Request.Context(), "Unexpected error in assessment operation", err,
			logger.String("operation", operation))
	}
	dto.SendError(c, err)
}

func queryInt(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
