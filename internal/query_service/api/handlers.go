// Package api exposes the query service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docquery/internal/models"
	"docquery/internal/query_service/service"
	"docquery/internal/rag/schema"
	"docquery/pkg/circuitbreaker"
	"docquery/pkg/logger"
)

// Handler holds the HTTP handlers of the query service.
type Handler struct {
	service        *service.QueryService
	requestTimeout time.Duration
	log            *logger.Logger
}

// NewHandler creates a Handler. requestTimeout bounds the processing
// of one run request.
func NewHandler(svc *service.QueryService, requestTimeout time.Duration, log *logger.Logger) *Handler {
	return &Handler{service: svc, requestTimeout: requestTimeout, log: log}
}

// Run handles POST /api/v1/hackrx/run.
func (h *Handler) Run(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	resp, err := h.service.Run(ctx, &req)
	if err != nil {
		status := statusForError(err)
		h.log.WithError(err).WithField("status", status).Error("run request failed")
		c.JSON(status, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Health(c.Request.Context()))
}

// statusForError maps pipeline failures to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrDocumentFetch), errors.Is(err, schema.ErrDocumentParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, schema.ErrQuotaExhausted), errors.Is(err, schema.ErrThrottleTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
