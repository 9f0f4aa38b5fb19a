package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudsentry/posture/internal/application/dto"
	"github.com/cloudsentry/posture/internal/application/service"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

// CustomerHandler serves the customer management endpoints.
type CustomerHandler struct {
	customers service.CustomerService
	logger    logger.Logger
}

// NewCustomerHandler creates the customer handler.
func NewCustomerHandler(customers service.CustomerService, log logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		logger:    log.WithComponent("customer-handler"),
	}
}

// Register creates a customer.
// POST /api/v1/customers
func (h *CustomerHandler) Register(c *gin.Context) {
	var req dto.RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}

	customer, err := h.customers.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleError(c, err, "register_customer")
		return
	}
	dto.SendCreated(c, customer)
}

// Get returns one customer by identifier.
// GET /api/v1/customers/:customer_id
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		h.handleError(c, err, "get_customer")
		return
	}
	dto.SendSuccess(c, http.StatusOK, customer)
}

// GetByDomain returns one customer by tenant domain.
// GET /api/v1/customers/by-domain/:domain
func (h *CustomerHandler) GetByDomain(c *gin.Context) {
	customer, err := h.customers.GetByDomain(c.Request.Context(), c.Param("domain"))
	if err != nil {
		h.handleError(c, err, "get_customer_by_domain")
		return
	}
	dto.SendSuccess(c, http.StatusOK, customer)
}

// List returns customers, optionally filtered by status.
// GET /api/v1/customers?status=&limit=&offset=
func (h *CustomerHandler) List(c *gin.Context) {
	query := dto.CustomerQuery{
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}

	customers, err := h.customers.List(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err, "list_customers")
		return
	}
	dto.SendSuccess(c, http.StatusOK, customers)
}

// Update patches a customer.
// PUT /api/v1/customers/:customer_id
func (h *CustomerHandler) Update(c *gin.Context) {
	var req dto.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest(err.Error()))
		return
	}

	customer, err := h.customers.Update(c.Request.Context(), c.Param("customer_id"), &req)
	if err != nil {
		h.handleError(c, err, "update_customer")
		return
	}
	dto.SendSuccess(c, http.StatusOK, customer)
}

// Delete soft-deletes a customer; ?purge=true removes the row and its secret.
// DELETE /api/v1/customers/:customer_id
func (h *CustomerHandler) Delete(c *gin.Context) {
	id := c.Param("customer_id")

	var err error
	if c.Query("purge") == "true" {
		err = h.customers.Purge(c.Request.Context(), id)
	} else {
		err = h.customers.Deactivate(c.Request.Context(), id)
	}
	if err != nil {
		h.handleError(c, err, "delete_customer")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CustomerHandler) handleError(c *gin.Context, err error, operation string) {
	if appErr, ok := errors.AsAppError(err); ok {
		h.logger.Warn(c.Request.Context(), "Customer operation failed",
			logger.String("operation", operation),
			logger.String("error_code", string(appErr.Code)),
			logger.Err(err),
		)
	} else {
		h.logger.Error(c.Request.Context(), "Unexpected error in customer operation", err,
			logger.String("operation", operation))
	}
	dto.SendError(c, err)
}
