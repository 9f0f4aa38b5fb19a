// Package dto provides the data transfer objects of the application layer and
// the single conversion point from AppError to the wire format.
package dto

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/errors"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO is the wire form of an AppError.
type ErrorDTO struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// SendSuccess writes a success envelope.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// SendError converts any error to the wire format. Foreign errors collapse to
// a generic internal error so nothing leaks through the boundary.
func SendError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.ErrInternal(err)
	}
	c.JSON(appErr.HTTPStatus, &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
		},
		RequestID: requestID(c),
		Timestamp: time.Now().Unix(),
	})
	c.Abort()
}

// SendCreated writes a 201 success envelope.
func SendCreated(c *gin.Context, data interface{}) {
	SendSuccess(c, http.StatusCreated, data)
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get(string(constants.ContextKeyRequestID)); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
