package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"carsales/internal/engine"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// APIError is the JSON body of every non-2xx response.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message}
}

var (
	ErrServiceUnavailable = newAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dataset is still loading")
	ErrRateLimitExceeded  = newAPIError(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "rate limit exceeded")
	ErrNotRenderable      = newAPIError(http.StatusUnprocessableEntity, "CHART_NOT_RENDERABLE", "chart cannot be rendered as an image")
	errInternal           = newAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
)

func invalidParameter(name, message string) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  "INVALID_PARAMETER",
		Message:    message,
		Details:    map[string]string{"parameter": name},
	}
}

// toAPIError maps domain, validation and echo errors to response bodies.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var rangeErr *engine.InvalidRangeError
	if errors.As(err, &rangeErr) {
		return &APIError{
			StatusCode: http.StatusBadRequest,
			ErrorCode:  "INVALID_RANGE",
			Message:    rangeErr.Error(),
			Details:    map[string]interface{}{"field": rangeErr.Field, "min": rangeErr.Min, "max": rangeErr.Max},
		}
	}
	if errors.Is(err, engine.ErrRangeArity) {
		return newAPIError(http.StatusBadRequest, "INVALID_RANGE", err.Error())
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Namespace(), Message: validationMessage(fe)})
		}
		return &APIError{
			StatusCode: http.StatusBadRequest,
			ErrorCode:  "VALIDATION_FAILED",
			Message:    "request validation failed",
			Details:    fields,
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return newAPIError(he.Code, errorCode(he.Code), msg)
	}
	return errInternal
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusTooManyRequests:
		return "RATE_LIMIT_EXCEEDED"
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return "must have exactly " + fe.Param() + " elements"
	}
	return "failed " + fe.Tag() + " validation"
}

// ErrorHandler replaces echo's default so every error body is an APIError.
func (h *Handler) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request().Context(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(apiErr.StatusCode)
	} else {
		err = c.JSON(apiErr.StatusCode, apiErr)
	}
	if err != nil {
		h.logger.Error("write error response", slog.String("error", err.Error()))
	}
}
