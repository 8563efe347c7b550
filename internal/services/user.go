package services

import (
	"context"
	"errors"
	"strings"

	"github.com/assignhub/apiserver/internal/store"
	"github.com/assignhub/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	ListByRole(ctx context.Context, role string) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates registration and login use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register creates a new account. An empty role defaults to "user".
func (s *UserService) Register(ctx context.Context, username, password, role string) (types.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLength {
		return types.User{}, invalid("username must be at least 3 characters")
	}
	if len(password) < minPasswordLength {
		return types.User{}, invalid("password must be at least 6 characters")
	}

	if role == "" {
		role = types.RoleUser
	}
	if role != types.RoleUser && role != types.RoleAdmin {
		return types.User{}, invalid("role must be either user or admin")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Role:         role,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, ErrDuplicateUsername
		}
		return types.User{}, err
	}
	return user, nil
}

// Authenticate verifies a username/password pair. A non-empty
// requiredRole additionally filters the lookup, so logging in as an
// admin with a non-admin username fails the same way as a wrong
// password.
func (s *UserService) Authenticate(ctx context.Context, username, password, requiredRole string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if requiredRole != "" && user.Role != requiredRole {
		return types.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID loads a single account.
func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAdmins returns all accounts holding the admin role.
func (s *UserService) ListAdmins(ctx context.Context) ([]types.User, error) {
	return s.repo.ListByRole(ctx, types.RoleAdmin)
}
