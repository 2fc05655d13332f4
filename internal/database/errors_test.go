package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock timeout", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"fk violation", &pq.Error{Code: "23503"}, ErrorClassPermanent},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"order number conflict", ErrOrderNumberConflict, ErrorClassSerialization},
		{"wrapped conflict", fmt.Errorf("create order: %w", ErrOrderNumberConflict), ErrorClassSerialization},
		{"plain error", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.True(t, IsRetryable(ErrOrderNumberConflict))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "users_email_key"}

	assert.True(t, UniqueViolation(err, ""))
	assert.True(t, UniqueViolation(err, "users_email_key"))
	assert.False(t, UniqueViolation(err, "orders_order_number_key"))
	assert.False(t, UniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, UniqueViolation(errors.New("boom"), ""))
}

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{
		ProductID:   3,
		ProductName: "Calculator",
		Requested:   5,
		Available:   1,
	}

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrInvalidOrderState)
	assert.Contains(t, err.Error(), "Calculator")
	assert.Contains(t, err.Error(), "requested 5")

	wrapped := fmt.Errorf("create order: %w", err)
	assert.ErrorIs(t, wrapped, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	assert.True(t, errors.As(wrapped, &stockErr))
	assert.Equal(t, 1, stockErr.Available)
}
