package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

var (
	// ErrMissingToken means the request carried no bearer credential.
	ErrMissingToken = errors.New("missing token")

	// ErrUserNotFound means the token was valid but its subject no longer exists.
	ErrUserNotFound = errors.New("user not found")
)

// UnauthenticatedError is returned when a request cannot be bound to a user.
// Reason is one of ErrMissingToken, ErrTokenInvalid, ErrTokenExpired or
// ErrUserNotFound.
type UnauthenticatedError struct {
	Reason error
	Err    error
}

func (e *UnauthenticatedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthenticated: %v", e.Err)
	}
	return fmt.Sprintf("unauthenticated: %v", e.Reason)
}

func (e *UnauthenticatedError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Reason, e.Err}
	}
	return []error{e.Reason}
}

// UpstreamError is returned when user resolution fails for reasons other
// than a missing user, such as an unreachable database.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("resolve user: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// UserLookup resolves a token subject to a user.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// TokenVerifier checks a session token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Gate binds requests to the user named by their session token.
type Gate struct {
	tokens TokenVerifier
	users  UserLookup
}

func NewGate(tokens TokenVerifier, users UserLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate runs extract, verify and resolve for an Authorization header
// value. The returned user never carries a password hash.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (types.User, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return types.User{}, &UnauthenticatedError{Reason: ErrMissingToken}
	}

	subject, err := g.tokens.Verify(token)
	if err != nil {
		reason := ErrTokenInvalid
		if errors.Is(err, ErrTokenExpired) {
			reason = ErrTokenExpired
		}
		return types.User{}, &UnauthenticatedError{Reason: reason, Err: err}
	}

	user, err := g.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, &UnauthenticatedError{Reason: ErrUserNotFound}
		}
		return types.User{}, &UpstreamError{Err: err}
	}
	return user.Sanitized(), nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(authorization string) (string, bool) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return "", false
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
