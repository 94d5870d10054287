package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	v := NewVerifier("s3cret", "https://id.example.com")

	token, err := v.Sign("user_1", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.Subject)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("s3cret", "issuer-a")

	other, err := NewVerifier("other", "issuer-a").Sign("u", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrUnauthorized, "wrong secret")

	wrongIssuer, err := NewVerifier("s3cret", "issuer-b").Sign("u", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrUnauthorized, "wrong issuer")

	expired, err := v.Sign("u", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrUnauthorized, "expired")

	_, err = v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyRequest(t *testing.T) {
	v := NewVerifier("s3cret", "")
	token, err := v.Sign("admin", time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/events", nil)
	_, err = v.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrNoToken)

	r.Header.Set("Authorization", "Basic abc")
	_, err = v.VerifyRequest(r)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNoToken)

	r.Header.Set("Authorization", "Bearer "+token)
	claims, err := v.VerifyRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
}
