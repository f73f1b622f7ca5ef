package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSchema       ErrorType = "SCHEMA"
	ErrTypeParsing      ErrorType = "PARSING"
	ErrTypeDependency   ErrorType = "DEPENDENCY"
	ErrTypeEmptySeries  ErrorType = "EMPTY_SERIES"
	ErrTypeInvalidRange ErrorType = "INVALID_RANGE"
	ErrTypeNetwork      ErrorType = "NETWORK"
	ErrTypeStorage      ErrorType = "STORAGE"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeConfig       ErrorType = "CONFIG"
)

// Sentinels for errors.Is. They match any AppError of the same type.
var (
	ErrSchema       = &AppError{Type: ErrTypeSchema}
	ErrParse        = &AppError{Type: ErrTypeParsing}
	ErrDependency   = &AppError{Type: ErrTypeDependency}
	ErrEmptySeries  = &AppError{Type: ErrTypeEmptySeries}
	ErrInvalidRange = &AppError{Type: ErrTypeInvalidRange}
	ErrNetwork      = &AppError{Type: ErrTypeNetwork}
	ErrStorage      = &AppError{Type: ErrTypeStorage}
	ErrValidation   = &AppError{Type: ErrTypeValidation}
	ErrNotFound     = &AppError{Type: ErrTypeNotFound}
	ErrConfig       = &AppError{Type: ErrTypeConfig}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches a target AppError by type. A target with a message must also
// match the message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Type != e.Type {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or ""
func TypeOf(err error) ErrorType {
	for err != nil {
		if app, ok := err.(*AppError); ok {
			return app.Type
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
