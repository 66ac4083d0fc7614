package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the input limit of bcrypt.
const maxPasswordBytes = 72

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases: registration and credential checks.
type UserService struct {
	repo       UserRepository
	bcryptCost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserService(repo UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost}
}

// Register creates a user with a bcrypt hash of rawPassword. The returned
// user does not carry the hash.
func (s *UserService) Register(ctx context.Context, username, email, rawPassword string) (types.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || rawPassword == "" {
		return types.User{}, validationError("", "please provide all required fields")
	}
	if len(rawPassword) > maxPasswordBytes {
		return types.User{}, validationError("password", fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(rawPassword), s.bcryptCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user.Sanitized(), nil
}

// VerifyPassword returns the user registered under email if rawPassword
// matches. Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) VerifyPassword(ctx context.Context, email, rawPassword string) (types.User, error) {
	email = normalizeEmail(email)
	if email == "" || rawPassword == "" {
		return types.User{}, validationError("", "please provide email and password")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Spend the same bcrypt work as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(rawPassword))
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(rawPassword)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user.Sanitized(), nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("placeholder-password"), s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
