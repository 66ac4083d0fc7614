package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestIssuer(lifetime time.Duration) (*TokenIssuer, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTokenIssuer(testSecret, lifetime, WithClock(clock.Now)), clock
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	issuer, _ := newTestIssuer(time.Hour)

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestIssue_Claims(t *testing.T) {
	issuer, clock := newTestIssuer(0)
	assert.Equal(t, DefaultTokenLifetime, issuer.Lifetime())

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.True(t, claims.IssuedAt.Time.Equal(clock.now))
	assert.True(t, claims.ExpiresAt.Time.Equal(clock.now.Add(30*24*time.Hour)))

	_, err = issuer.Issue("  ")
	assert.Error(t, err)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	issuer, clock := newTestIssuer(time.Minute)
	start := clock.now

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	clock.now = start.Add(time.Minute - time.Second)
	_, err = issuer.Verify(token)
	require.NoError(t, err)

	clock.now = start.Add(time.Minute)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)

	clock.now = start.Add(time.Hour)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_SignatureTampering(t *testing.T) {
	issuer, _ := newTestIssuer(time.Hour)
	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	sigStart := strings.LastIndex(token, ".") + 1
	// The final character may only carry padding bits, so it is left alone.
	for i := sigStart; i < len(token)-1; i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		_, err := issuer.Verify(tampered)
		assert.ErrorIs(t, err, ErrTokenInvalid, "position %d", i)
	}
}

func TestVerify_PayloadSwap(t *testing.T) {
	issuer, _ := newTestIssuer(time.Hour)
	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	payload, err := json.Marshal(map[string]any{"sub": "user-2", "exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(payload)

	_, err = issuer.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Rejects(t *testing.T) {
	issuer, clock := newTestIssuer(time.Hour)
	exp := jwt.NewNumericDate(clock.now.Add(time.Hour))

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: exp,
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: exp,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: exp,
	}).SignedString(testSecret)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: exp,
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
	}).SignedString(testSecret)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"other secret": otherSecret,
		"alg none":     unsigned,
		"alg HS512":    hs512,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Verify(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.NotErrorIs(t, err, ErrTokenExpired)
		})
	}
}
