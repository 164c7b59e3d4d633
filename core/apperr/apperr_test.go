package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("name is required"), http.StatusBadRequest},
		{NotFound("track %s not found", "t1"), http.StatusNotFound},
		{Forbidden("not yours"), http.StatusForbidden},
		{Unauthorized("missing token"), http.StatusUnauthorized},
		{NotConnected("BEATSTARS"), http.StatusFailedDependency},
		{AuthRejected("YOUTUBE", errors.New("invalid_grant")), http.StatusBadGateway},
		{Protocol("publish failed", nil), http.StatusBadGateway},
		{Timeout("processing did not finish"), http.StatusGatewayTimeout},
		{Storage("put", errors.New("disk")), http.StatusInternalServerError},
		{Internal("boom", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Status(), tc.err.Error())
	}
}

func TestNotConnectedIsClientError(t *testing.T) {
	assert.False(t, NotConnected("YOUTUBE").Retryable())
	assert.True(t, AuthRejected("YOUTUBE", nil).Retryable())
	assert.True(t, Timeout("x").Retryable())
}

func TestFromUnwrapsChain(t *testing.T) {
	base := Forbidden("track belongs to another user")
	wrapped := fmt.Errorf("publish: %w", base)

	got := From(wrapped)
	assert.Same(t, base, got)
	assert.True(t, Is(wrapped, KindPermission))
	assert.False(t, Is(wrapped, KindNotFound))

	plain := From(errors.New("boom"))
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, CodeInternal, plain.Code)
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Protocol("marketplace call failed", errors.New("Unauthorized at path me > inventory"))
	assert.Equal(t, "marketplace call failed: Unauthorized at path me > inventory", err.Error())
	assert.ErrorIs(t, err, err.Err)
}
