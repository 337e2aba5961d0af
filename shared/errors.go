package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTransientStore = errors.New("store temporarily unavailable")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// AppError carries the HTTP status and public message of a failure while
// keeping the underlying cause for errors.Is / errors.As.
type AppError struct {
	StatusCode int
	Message    string
	Data       interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(statusCode int, err error, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

func NewBadRequestError(err error, message string) *AppError {
	return NewAppError(http.StatusBadRequest, err, message)
}

func NewUnauthorizedError(err error, message string) *AppError {
	return NewAppError(http.StatusUnauthorized, wrapSentinel(err, ErrUnauthorized), message)
}

func NewForbiddenError(err error, message string) *AppError {
	return NewAppError(http.StatusForbidden, wrapSentinel(err, ErrForbidden), message)
}

func NewNotFoundError(err error, message string) *AppError {
	return NewAppError(http.StatusNotFound, wrapSentinel(err, ErrNotFound), message)
}

func NewTooManyRequestsError(err error, message string, data interface{}) *AppError {
	appErr := NewAppError(http.StatusTooManyRequests, wrapSentinel(err, ErrRateLimited), message)
	appErr.Data = data
	return appErr
}

func NewServiceUnavailableError(err error, message string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, wrapSentinel(err, ErrTransientStore), message)
}

// GetAppError finds the first AppError in err's chain.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func wrapSentinel(err, sentinel error) error {
	if err == nil {
		return sentinel
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
