package services

import (
	"context"
	"testing"

	"github.com/assignhub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		role     string
	}{
		{name: "short username", username: "ab", password: "secret123", role: ""},
		{name: "whitespace username", username: "  a  ", password: "secret123", role: ""},
		{name: "short password", username: "alice", password: "12345", role: ""},
		{name: "unknown role", username: "alice", password: "secret123", role: "root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUserRepo()
			svc := NewUserService(repo)

			_, err := svc.Register(context.Background(), tt.username, tt.password, tt.role)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Empty(t, repo.users, "no account should be created")
		})
	}
}

func TestRegister_CreatesUserWithHashedPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), "  alice  ", "secret123", "")
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username, "username should be trimmed")
	assert.Equal(t, types.RoleUser, user.Role, "role should default to user")
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
}

func TestRegister_AdminRole(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	user, err := svc.Register(context.Background(), "boss", "secret123", types.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestRegister_DuplicateUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "alice", "secret123", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "different1", "")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Len(t, repo.users, 1, "exactly one account should persist")
}

func TestAuthenticate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	registered, err := svc.Register(context.Background(), "alice", "secret123", "")
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "alice", "secret123", "")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	// Unknown username and wrong password must be indistinguishable.
	_, unknownErr := svc.Authenticate(context.Background(), "nobody", "secret123", "")
	_, wrongErr := svc.Authenticate(context.Background(), "alice", "wrongpass", "")
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_RequiredRoleFiltersLookup(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "alice", "secret123", "")
	require.NoError(t, err)

	// A valid user login must fail the admin-login variant the same
	// way a wrong password does.
	_, err = svc.Authenticate(context.Background(), "alice", "secret123", types.RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestListAdmins(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "alice", "secret123", "")
	require.NoError(t, err)
	boss, err := svc.Register(context.Background(), "boss", "secret123", types.RoleAdmin)
	require.NoError(t, err)

	admins, err := svc.ListAdmins(context.Background())
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, boss.ID, admins[0].ID)
}
