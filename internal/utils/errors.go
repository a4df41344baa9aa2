package utils

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"
)

type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"error"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewBadRequestError(message string, details any) *APIError {
	return &APIError{
		StatusCode: fiber.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		Details:    details,
	}
}

func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		StatusCode: fiber.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

func NewForbiddenError(message string) *APIError {
	return &APIError{
		StatusCode: fiber.StatusForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
	}
}

func NewNotFoundError(resource string) *APIError {
	return &APIError{
		StatusCode: fiber.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
	}
}

func NewServiceUnavailableError(feature string) *APIError {
	return &APIError{
		StatusCode: fiber.StatusServiceUnavailable,
		Code:       "UNAVAILABLE",
		Message:    fmt.Sprintf("%s is not configured", feature),
	}
}

// NewServerError reports a failed operation by name. Unlike NewInternalError
// it does not carry the underlying error unless details are passed.
func NewServerError(message string, details any) *APIError {
	return &APIError{
		StatusCode: fiber.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Details:    details,
	}
}

func NewInternalError(err error) *APIError {
	return &APIError{
		StatusCode: fiber.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    "An internal error occurred",
		Details:    err.Error(),
	}
}

// NewErrorHandler renders errors returned by handlers as APIError bodies.
// Internal error details are only exposed when exposeDetails is set.
func NewErrorHandler(logger *slog.Logger, exposeDetails bool) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		var apiErr *APIError
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &fiberErr):
			apiErr = &APIError{
				StatusCode: fiberErr.Code,
				Code:       "HTTP_ERROR",
				Message:    fiberErr.Message,
			}
		default:
			logger.Error("Unhandled request error",
				"method", c.Method(),
				"path", c.Path(),
				"error", err)
			apiErr = NewInternalError(err)
			if !exposeDetails {
				apiErr.Details = nil
			}
		}

		return c.Status(apiErr.StatusCode).JSON(apiErr)
	}
}
