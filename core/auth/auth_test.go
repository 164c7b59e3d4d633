package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestSessionToken(t *testing.T) {
	iss, err := NewIssuer("test-secret")
	require.NoError(t, err)

	tok, err := iss.IssueToken(42, "a@b.c")
	require.NoError(t, err)

	claims, err := iss.ParseToken(tok)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "a@b.c", claims.Email)
}

func TestSessionTokenRejections(t *testing.T) {
	iss, err := NewIssuer("test-secret")
	require.NoError(t, err)
	other, err := NewIssuer("other-secret")
	require.NoError(t, err)

	tok, err := other.IssueToken(1, "x@y.z")
	require.NoError(t, err)
	_, err = iss.ParseToken(tok)
	assert.Error(t, err, "wrong secret")

	state, err := iss.SignState(1, "p")
	require.NoError(t, err)
	_, err = iss.ParseToken(state)
	assert.Error(t, err, "state is not a session")

	past := time.Now().Add(-48 * time.Hour)
	iss.now = func() time.Time { return past }
	old, err := iss.IssueToken(1, "x@y.z")
	require.NoError(t, err)
	iss.now = time.Now
	_, err = iss.ParseToken(old)
	assert.Error(t, err, "expired")

	_, err = iss.ParseToken("garbage")
	assert.Error(t, err)
}

func TestOAuthState(t *testing.T) {
	iss, err := NewIssuer("test-secret")
	require.NoError(t, err)

	s, err := iss.SignState(7, "profile-1")
	require.NoError(t, err)

	state, err := iss.ParseState(s)
	require.NoError(t, err)
	assert.Equal(t, int64(7), state.UserID)
	assert.Equal(t, "profile-1", state.ProfileID)

	session, err := iss.IssueToken(7, "a@b.c")
	require.NoError(t, err)
	_, err = iss.ParseState(session)
	assert.Error(t, err)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("")
	assert.Error(t, err)
}
