package types

import "time"

// Role values an account may hold.
const (
	// RoleUser is the default role for self-registered accounts.
	RoleUser = "user"

	// RoleAdmin marks accounts that receive and review assignments.
	RoleAdmin = "admin"
)

// User represents an account in the system, either a regular user
// or an admin. It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	// Uniqueness is case-sensitive and enforced at creation.
	Username string `json:"username" db:"username"`

	// Role indicates the user's authorization level within the system,
	// one of "user" or "admin". Immutable after creation.
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin reports whether the account holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicUser is the projection of a User safe to return to other
// accounts, e.g. when listing admins available for submissions.
type PublicUser struct {
	// ID is the unique identifier of the user.
	ID int `json:"id"`

	// Username is the user's login name.
	Username string `json:"username"`
}

// Public returns the limited projection of the account.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}

// Identity is the authenticated identity decoded from a verified
// bearer token. It is reconstructed per request and never persisted.
type Identity struct {
	// ID is the account ID the token was issued for.
	ID int `json:"id"`

	// Username is the login name asserted by the token.
	Username string `json:"username"`

	// Role is the role asserted by the token.
	Role string `json:"role"`
}
