package errors

import (
	"fmt"
)

// Helper functions for common error types

// NewSchemaError reports a requested column that the source does not have
func NewSchemaError(source, column string) *AppError {
	return NewAppError(ErrTypeSchema, fmt.Sprintf("column %q not found", column), nil).
		WithContext("source", source).
		WithContext("column", column)
}

// NewParseError reports a cell that could not be parsed
func NewParseError(column string, row int, value string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, fmt.Sprintf("cannot parse %q in column %q at row %d", value, column, row), cause).
		WithContext("column", column).
		WithContext("row", row).
		WithContext("value", value)
}

// NewParsingError creates a parsing-related error not tied to a cell
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewDependencyError reports a transform step reading a column that is not
// yet defined
func NewDependencyError(step, column string) *AppError {
	return NewAppError(ErrTypeDependency, fmt.Sprintf("step %s references undefined column %q", step, column), nil).
		WithContext("step", step).
		WithContext("column", column)
}

// NewEmptySeriesError reports an operation that needs at least one row
func NewEmptySeriesError(operation string) *AppError {
	return NewAppError(ErrTypeEmptySeries, fmt.Sprintf("%s: series is empty", operation), nil)
}

// NewInvalidRangeError reports a window whose start is after its end
func NewInvalidRangeError(start, end string) *AppError {
	return NewAppError(ErrTypeInvalidRange, fmt.Sprintf("start %s is after end %s", start, end), nil).
		WithContext("start", start).
		WithContext("end", end)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
