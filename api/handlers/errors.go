package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"example.com/ecoguard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Error codes returned in the "code" field
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
	msgInternalServerError = "Internal server error"
)

// validate checks request bodies that carry `validate` tags
var validate = validator.New()

// APIError is the JSON error body of every failed request
type APIError struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates an APIError
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Message: message, Code: code, StatusCode: status}
}

func badRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, CodeValidation, message)
}

// toAPIError classifies err by the service's error taxonomy
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return badRequest(validationErr.Message)
	}

	var notFound *service.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return NewAPIError(http.StatusNotFound, CodeNotFound, notFound.Error())
	case errors.Is(err, service.ErrNotFound):
		return NewAPIError(http.StatusNotFound, CodeNotFound, "Not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		return NewAPIError(http.StatusUnauthorized, CodeUnauthenticated, "Invalid credentials")
	case errors.Is(err, service.ErrConflict):
		return NewAPIError(http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return NewAPIError(http.StatusGatewayTimeout, CodeTimeout, "Request timed out")
	}
	return NewAPIError(http.StatusInternalServerError, CodeInternal, msgInternalServerError)
}

// respondError writes err as an APIError. Server errors are logged with their cause.
func respondError(c *gin.Context, log *logrus.Logger, err error, action string) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).Error(action)
	} else {
		log.WithError(err).Debug(action)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("Invalid " + name)
	}
	return uint(id), nil
}

// parseLimit reads the optional ?limit= query. Absent means zero.
func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, badRequest("limit must be a non-negative integer")
	}
	return limit, nil
}

// NotFound answers requests that matched no route
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, NewAPIError(http.StatusNotFound, CodeNotFound, "Not found"))
}
