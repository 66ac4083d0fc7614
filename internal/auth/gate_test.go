package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

type stubUsers struct {
	users map[string]types.User
	err   error
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (types.User, error) {
	if s.err != nil {
		return types.User{}, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func newTestGate(t *testing.T) (*Gate, *TokenIssuer, *fakeClock, *stubUsers) {
	t.Helper()
	issuer, clock := newTestIssuer(time.Hour)
	users := &stubUsers{users: map[string]types.User{
		"alice-id": {ID: "alice-id", Username: "alice", Email: "a@x.test", PasswordHash: "secret-hash"},
	}}
	return NewGate(issuer, users), issuer, clock, users
}

func unauthenticatedReason(t *testing.T, err error) error {
	t.Helper()
	var unauth *UnauthenticatedError
	require.ErrorAs(t, err, &unauth)
	return unauth.Reason
}

func TestAuthenticate_Success(t *testing.T) {
	gate, issuer, _, _ := newTestGate(t)
	token, err := issuer.Issue("alice-id")
	require.NoError(t, err)

	user, err := gate.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "alice-id", user.ID)
	assert.Empty(t, user.PasswordHash)

	user, err = gate.Authenticate(context.Background(), "bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	gate, _, _, _ := newTestGate(t)

	for _, header := range []string{"", "   ", "Bearer", "Bearer   ", "Basic dXNlcjpwYXNz", "Token abc"} {
		_, err := gate.Authenticate(context.Background(), header)
		assert.Equal(t, ErrMissingToken, unauthenticatedReason(t, err), "header %q", header)
	}
}

func TestAuthenticate_InvalidAndExpired(t *testing.T) {
	gate, issuer, clock, _ := newTestGate(t)
	token, err := issuer.Issue("alice-id")
	require.NoError(t, err)

	_, err = gate.Authenticate(context.Background(), "Bearer "+token+"x")
	assert.Equal(t, ErrTokenInvalid, unauthenticatedReason(t, err))

	clock.now = clock.now.Add(2 * time.Hour)
	_, err = gate.Authenticate(context.Background(), "Bearer "+token)
	assert.Equal(t, ErrTokenExpired, unauthenticatedReason(t, err))
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthenticate_UnknownSubject(t *testing.T) {
	gate, issuer, _, _ := newTestGate(t)
	token, err := issuer.Issue("deleted-id")
	require.NoError(t, err)

	_, err = gate.Authenticate(context.Background(), "Bearer "+token)
	assert.Equal(t, ErrUserNotFound, unauthenticatedReason(t, err))
}

func TestAuthenticate_UpstreamFailureIsDistinct(t *testing.T) {
	gate, issuer, _, users := newTestGate(t)
	token, err := issuer.Issue("alice-id")
	require.NoError(t, err)
	dbErr := errors.New("connection refused")
	users.err = dbErr

	_, err = gate.Authenticate(context.Background(), "Bearer "+token)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.ErrorIs(t, err, dbErr)
	var unauth *UnauthenticatedError
	assert.False(t, errors.As(err, &unauth))
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	_, ok := UserFromContext(ctx)
	assert.False(t, ok)
	_, ok = UserIDFromContext(ctx)
	assert.False(t, ok)

	ctx = WithUser(ctx, types.User{ID: "alice-id", Username: "alice"})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
	id, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice-id", id)
}
