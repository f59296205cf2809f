// internal/util/errors_test.go
package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	driverErr := errors.New("connection reset")

	cases := []struct {
		name      string
		err       error
		kind      string
		retryable bool
	}{
		{"validation", Invalid("fundedLoanId is required"), "validation_error", false},
		{"not found", NotFound("funded loan", "fl-1"), "not_found", false},
		{"already repaid", fmt.Errorf("record repayment: %w", ErrAlreadyRepaid), "conflict", false},
		{"already exists", ErrAlreadyExists, "conflict", false},
		{"storage", Storage("insert repaid loan", driverErr), "storage_error", true},
		{"unknown", errors.New("boom"), "internal_error", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, Kind(tc.err))
			assert.Equal(t, tc.retryable, Retryable(tc.err))
		})
	}
}

func TestStorageKeepsDriverError(t *testing.T) {
	driverErr := errors.New("unique constraint failed")
	err := Storage("insert funded loan", driverErr)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, driverErr)
	assert.Contains(t, err.Error(), "insert funded loan")
}

func TestConflictSubkinds(t *testing.T) {
	assert.True(t, IsError(ErrAlreadyRepaid, ErrConflict))
	assert.True(t, IsError(ErrLoanDefaulted, ErrConflict))
	assert.False(t, IsError(ErrAlreadyRepaid, ErrAlreadyExists))
	assert.Contains(t, Invalid("deadline %q is not numeric", "abc").Error(), `deadline "abc" is not numeric`)
}
