package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	err := New(CodeConsentDenied, "no enrichment consent granted")
	assert.True(t, HasCode(err, CodeConsentDenied))
	assert.False(t, HasCode(err, CodeRateLimited))
	assert.False(t, HasCode(errors.New("plain"), CodeConsentDenied))
}

func TestHasCode_Wrapped(t *testing.T) {
	inner := New(CodeNotFound, "lead missing")
	err := fmt.Errorf("enrich lead: %w", inner)
	assert.True(t, HasCode(err, CodeNotFound))
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestReason(t *testing.T) {
	err := Wrap(errors.New("dial tcp: refused"), CodeProviderUnavailable, "property vendor unreachable")
	assert.Equal(t, "property vendor unreachable", Reason(err))
	assert.Equal(t, "plain failure", Reason(errors.New("plain failure")))
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, ToHTTPStatus(CodeConsentDenied))
	assert.Equal(t, http.StatusTooManyRequests, ToHTTPStatus(CodeRateLimited))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeValidation))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(Code("unknown")))
}

func TestUnwrap(t *testing.T) {
	underlying := errors.New("context deadline exceeded")
	err := Wrap(underlying, CodeTimeout, "credit vendor timed out")
	assert.ErrorIs(t, err, underlying)
}
