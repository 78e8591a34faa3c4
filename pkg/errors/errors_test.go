package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pay-theory/arangorm/pkg/errors"
)

func TestArangORMError(t *testing.T) {
	err := errors.NewError("update", "Employee", errors.ErrMissingWhere)

	assert.Equal(t, "arangorm: update Employee: where clause is required", err.Error())
	assert.True(t, stderrors.Is(err, errors.ErrMissingWhere))
	assert.True(t, errors.IsValidation(err))

	wrapped := fmt.Errorf("outer: %w", err)
	var target *errors.ArangORMError
	require.True(t, stderrors.As(wrapped, &target))
	assert.Equal(t, "update", target.Op)
}

func TestArangORMErrorWithoutModel(t *testing.T) {
	err := errors.NewErrorWithContext("executeAQL", "", errors.ErrInvalidParams, map[string]any{"type": "string"})
	assert.Equal(t, "arangorm: executeAQL: invalid params type", err.Error())
	assert.Equal(t, "string", err.Context["type"])
}

func TestBatchError(t *testing.T) {
	cause := stderrors.New("boom")
	err := fmt.Errorf("destroyAll: %w", &errors.BatchError{Deleted: 2, Total: 5, Err: cause})

	assert.True(t, stderrors.Is(err, errors.ErrBatchOperationFailed))
	assert.True(t, stderrors.Is(err, cause))

	be, ok := errors.AsBatchError(err)
	require.True(t, ok)
	assert.Equal(t, 2, be.Deleted)
	assert.Contains(t, be.Error(), "deleted 2 of 5")
}

func TestClassifiers(t *testing.T) {
	assert.True(t, errors.IsInvalidModel(fmt.Errorf("%w: _key", errors.ErrReservedProperty)))
	assert.True(t, errors.IsNotConnected(errors.NewError("ping", "", errors.ErrNotConnected)))
	assert.False(t, errors.IsValidation(errors.ErrNotConnected))
}
