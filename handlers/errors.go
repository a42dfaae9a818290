package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blazeoffice/repository"
	"blazeoffice/services"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps service and repository sentinels to an HTTP status and
// a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrUnknownTemplate),
		errors.Is(err, services.ErrUnknownAudience):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, services.ErrRunInProgress),
		errors.Is(err, services.ErrBulkInProgress):
		return http.StatusConflict, "in_progress"
	case errors.Is(err, services.ErrNoActiveTier),
		errors.Is(err, services.ErrChatDisabled),
		errors.Is(err, services.ErrAuthNotConfigured):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError writes the mapped error. Internal errors are logged and
// their detail is not exposed.
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
		message = msg
	}
	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

func (h *Handler) bindError(c *gin.Context, err error) {
	h.log.Debug("Invalid request", zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()})
}

// idParam parses the :id path parameter, answering 400 when it is not a
// positive integer.
func (h *Handler) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
