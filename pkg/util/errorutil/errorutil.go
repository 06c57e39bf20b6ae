package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced to clients.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidField       = "INVALID_FIELD"
	CodeInvalidValue       = "INVALID_VALUE"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeValidation         = "VALIDATION_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid email or password", http.StatusUnauthorized, nil)
}

func NewAccountDisabled() error {
	return NewDomainError(CodeAccountDisabled, "account has been disabled, contact a manager", http.StatusForbidden, nil)
}

func NewMissingToken() error {
	return NewDomainError(CodeMissingToken, "authorization token not found", http.StatusUnauthorized, nil)
}

func NewInvalidToken() error {
	return NewDomainError(CodeInvalidToken, "invalid token", http.StatusUnauthorized, nil)
}

func NewTokenExpired() error {
	return NewDomainError(CodeTokenExpired, "token expired", http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInvalidField(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidField, message, http.StatusBadRequest, details)
}

func NewInvalidValue(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidValue, message, http.StatusBadRequest, details)
}

func NewDuplicateEmail() error {
	return NewDomainError(CodeDuplicateEmail, "an account with this email already exists", http.StatusConflict, nil)
}

func NewServiceUnavailable(err error) error {
	return &DomainError{
		Code:       CodeServiceUnavailable,
		Message:    "service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewRateLimited() error {
	return NewDomainError(CodeRateLimited, "too many requests, try again later", http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsKind reports whether err is a DomainError carrying code.
func IsKind(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{
			Code:       fiberCode(fiberErr.Code),
			Message:    fiberErr.Message,
			HTTPStatus: fiberErr.Code,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewServiceUnavailable(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}

func fiberCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeInvalidToken
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	}
	if status >= 500 {
		return CodeInternal
	}
	return "HTTP_ERROR"
}
