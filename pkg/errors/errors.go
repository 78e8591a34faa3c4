// Package errors defines the error taxonomy shared by every arangorm package
package errors

import (
	"errors"
	"fmt"
)

// Definition errors abort model registration.
var (
	// ErrInvalidModel is returned when a model definition is malformed
	ErrInvalidModel = errors.New("invalid model definition")

	// ErrReservedProperty is returned when a property is literally named after a reserved storage column
	ErrReservedProperty = errors.New("property name is reserved")

	// ErrDuplicateColumn is returned when two properties target the same storage column
	ErrDuplicateColumn = errors.New("duplicate storage column")

	// ErrInvalidProjection is returned when a non-empty field list yields nothing to project
	ErrInvalidProjection = errors.New("fields list produced an empty projection")

	// ErrModelNotFound is returned when an operation names a model that was never defined
	ErrModelNotFound = errors.New("model not defined")
)

// Validation errors are reported before any storage call is made.
var (
	ErrEmptyRecord         = errors.New("record data is required")
	ErrMissingKey          = errors.New("key or id is required")
	ErrMissingID           = errors.New("all identifier fields are required")
	ErrMissingWhere        = errors.New("where clause is required")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvalidOperand      = errors.New("invalid operand")
	ErrInvalidFilter       = errors.New("invalid filter")
	ErrParamCountMismatch  = errors.New("placeholder count does not match parameter count")
	ErrInvalidParams       = errors.New("invalid params type")
	ErrInvalidQuery        = errors.New("invalid query")
	ErrUnknownStrategy     = errors.New("unknown identifier strategy")
)

// Runtime errors.
var (
	// ErrNotConnected is returned when the session has no usable client
	ErrNotConnected = errors.New("not connected")

	// ErrBatchOperationFailed is returned when a batch operation partially fails
	ErrBatchOperationFailed = errors.New("batch operation failed")

	// ErrEncryptionNotConfigured is returned when a model has encrypted properties but no key is configured
	ErrEncryptionNotConfigured = errors.New("encryption not configured")

	// ErrInvalidEncryptedEnvelope is returned when a stored encrypted value cannot be decoded
	ErrInvalidEncryptedEnvelope = errors.New("invalid encrypted envelope")
)

// ArangORMError represents a detailed error with context
type ArangORMError struct {
	Op      string         // Operation that failed
	Model   string         // Model name
	Err     error          // Underlying error
	Context map[string]any // Additional context
}

// Error implements the error interface
func (e *ArangORMError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("arangorm: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("arangorm: %s %s: %v", e.Op, e.Model, e.Err)
}

// Unwrap returns the underlying error
func (e *ArangORMError) Unwrap() error {
	return e.Err
}

// NewError creates a new ArangORMError
func NewError(op, model string, err error) *ArangORMError {
	return &ArangORMError{
		Op:    op,
		Model: model,
		Err:   err,
	}
}

// NewErrorWithContext creates a new ArangORMError with context
func NewErrorWithContext(op, model string, err error, context map[string]any) *ArangORMError {
	return &ArangORMError{
		Op:      op,
		Model:   model,
		Err:     err,
		Context: context,
	}
}

// BatchError reports a batch that stopped part way through.
type BatchError struct {
	Deleted int
	Total   int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%v: deleted %d of %d: %v", ErrBatchOperationFailed, e.Deleted, e.Total, e.Err)
}

func (e *BatchError) Unwrap() []error {
	return []error{ErrBatchOperationFailed, e.Err}
}

// IsNotConnected checks if an error indicates a missing connection
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// IsInvalidModel checks if an error indicates a rejected model definition
func IsInvalidModel(err error) bool {
	return errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrReservedProperty) ||
		errors.Is(err, ErrDuplicateColumn)
}

// IsValidation checks if an error was raised before reaching storage
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyRecord, ErrMissingKey, ErrMissingID, ErrMissingWhere,
		ErrUnsupportedOperator, ErrInvalidOperand, ErrInvalidFilter,
		ErrParamCountMismatch, ErrInvalidParams, ErrInvalidQuery, ErrUnknownStrategy,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// AsBatchError extracts a BatchError from an error chain
func AsBatchError(err error) (*BatchError, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
