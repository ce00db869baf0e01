package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "domain error passes through", err: fmt.Errorf("wrap: %w", NewConflict("stale", nil)), code: "CONFLICT", status: http.StatusConflict},
		{name: "persistence", err: NewPersistenceError("save cases", errors.New("disk full")), code: "PERSISTENCE_FAILED", status: http.StatusServiceUnavailable},
		{name: "missing sla configuration", err: fmt.Errorf("lookup: %w", ErrConfigurationMissing), code: "SLA_CONFIGURATION_MISSING", status: http.StatusUnprocessableEntity},
		{name: "dispatch", err: fmt.Errorf("%w: smtp down", ErrDispatch), code: "DISPATCH_FAILED", status: http.StatusBadGateway},
		{name: "anything else", err: errors.New("boom"), code: "INTERNAL_ERROR", status: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestPersistenceErrorKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError("save cases", cause)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, ToDomainError(err), cause)
}
