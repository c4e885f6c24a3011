// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/pkg/errutil"
)

// Error codes for failures raised by the HTTP layer itself.
const (
	CodeInternal        = "INTERNAL_ERROR"
	CodeInvalidBody     = "INVALID_REQUEST_BODY"
	CodeValidation      = "VALIDATION_FAILED"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status    string `json:"status"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// APIError is an error with the HTTP status and body it renders as.
type APIError struct {
	Status    int
	Message   string
	ErrorCode string
	Err       error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// tokenStatuses picks the status of token failures, which differ by route.
type tokenStatuses struct {
	invalid int
	expired int
}

var (
	sessionTokens = tokenStatuses{invalid: http.StatusUnauthorized, expired: http.StatusUnauthorized}
	resetTokens   = tokenStatuses{invalid: http.StatusBadRequest, expired: http.StatusGone}
)

// toAPIError maps a service error onto its HTTP status.
func toAPIError(err error, tokens tokenStatuses) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	status := http.StatusInternalServerError
	var sentinel error
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		status, sentinel = http.StatusBadRequest, auth.ErrInvalidInput
	case errors.Is(err, auth.ErrEmailAlreadyRegistered):
		status, sentinel = http.StatusConflict, auth.ErrEmailAlreadyRegistered
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, sentinel = http.StatusUnauthorized, auth.ErrInvalidCredentials
	case errors.Is(err, auth.ErrUserNotFound):
		status, sentinel = http.StatusNotFound, auth.ErrUserNotFound
	case errors.Is(err, auth.ErrTokenExpired):
		status, sentinel = tokens.expired, auth.ErrTokenExpired
	case errors.Is(err, auth.ErrInvalidToken):
		status, sentinel = tokens.invalid, auth.ErrInvalidToken
	case errors.Is(err, auth.ErrTokenMalformed):
		status, sentinel = http.StatusUnauthorized, auth.ErrTokenMalformed
	}

	if sentinel == nil {
		return &APIError{
			Status:    status,
			Message:   http.StatusText(status),
			ErrorCode: CodeInternal,
			Err:       err,
		}
	}

	message := sentinel.Error()
	// Input errors carry the field-level reason.
	if sentinel == auth.ErrInvalidInput {
		message = err.Error()
	}
	code := errutil.Code(err)
	if code == "" {
		code = CodeInternal
	}
	return &APIError{Status: status, Message: message, ErrorCode: code, Err: err}
}

// errorHandler renders errors as ErrorResponse bodies. Server errors are
// logged once here.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &echoErr):
			msg, ok := echoErr.Message.(string)
			if !ok {
				msg = http.StatusText(echoErr.Code)
			}
			apiErr = &APIError{Status: echoErr.Code, Message: msg, ErrorCode: httpErrorCode(echoErr.Code), Err: err}
		default:
			apiErr = toAPIError(err, sessionTokens)
		}

		if apiErr.Status >= http.StatusInternalServerError {
			errutil.LogErrorContext(c.Request().Context(), logger, "request failed", apiErr.Err,
				"method", c.Request().Method,
				"route", c.Path(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID))
		}

		body := ErrorResponse{
			Status:    "error",
			Code:      apiErr.Status,
			Message:   apiErr.Message,
			ErrorCode: apiErr.ErrorCode,
		}
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(apiErr.Status)
		} else {
			writeErr = c.JSON(apiErr.Status, body)
		}
		if writeErr != nil {
			logger.Warn("failed to write error response", "error", writeErr)
		}
	}
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest:
		return CodeInvalidBody
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeForbidden
	default:
		if status >= http.StatusInternalServerError {
			return CodeInternal
		}
		return fmt.Sprintf("HTTP_%d", status)
	}
}
