// Package middleware provides the gin middleware chain: request identity,
// panic recovery, and optional bearer-token authentication.
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cloudsentry/posture/internal/application/dto"
	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

// RequestID attaches a request identifier to the gin and request contexts,
// honoring an inbound X-Request-ID header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(string(constants.ContextKeyRequestID), id)
		c.Header("X-Request-ID", id)

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request with latency and status.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	l := log.WithComponent("http")
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		l.Info(c.Request.Context(), "Request handled",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("took_ms", time.Since(started)),
		)
	}
}

// Recovery converts panics into a generic internal error response, never
// leaking internals to the caller.
func Recovery(log logger.Logger) gin.HandlerFunc {
	l := log.WithComponent("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				l.Error(c.Request.Context(), "Panic recovered in handler", nil,
					logger.Any("panic", r),
					logger.String("path", c.Request.URL.Path),
				)
				dto.SendError(c, errors.ErrInternal(nil))
			}
		}()
		c.Next()
	}
}

// BearerAuth validates an HMAC-signed bearer token when auth is enabled.
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			dto.SendError(c, errors.ErrUnauthorized("missing bearer token"))
			return
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			dto.SendError(c, errors.ErrUnauthorized("invalid bearer token"))
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, _ := claims["sub"].(string); sub != "" {
				c.Set("subject", sub)
			}
		}
		c.Next()
	}
}
