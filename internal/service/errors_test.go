package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrUserNotFound, ErrNotFound},
		{ErrInvalidPassword, ErrInvalidCredential},
		{ErrInvalidPasswordFormat, ErrPolicyViolation},
		{ErrEmailInUse, ErrConflict},
		{ErrAccountLocked, ErrRateLimited},
		{ErrCurrentPasswordRequired, ErrPolicyViolation},
		{ErrDefaultRoleMissing, ErrDependency},
	}

	for _, tt := range tests {
		assert.ErrorIs(t, tt.err, tt.kind, tt.err.Error())
	}
}

func TestWrappedErrorKeepsIdentity(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	err := fmt.Errorf("sending mail, %w", ErrMailFailed.wrap(cause))

	assert.ErrorIs(t, err, ErrMailFailed)
	assert.ErrorIs(t, err, ErrDependency)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrSMSFailed)

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "Failed to send email", e.Message())
	assert.Contains(t, e.Error(), "connection refused")
}
