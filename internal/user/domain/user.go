package domain

import (
	"errors"
	"strings"
	"time"
)

// Role names known to the system.
const (
	RoleUser        = "User"
	RoleMentor      = "Mentor"
	RoleCoordinator = "Coordinator"
	RoleSysAdmin    = "SysAdmin"
)

// Roles lists every role seeded into the roles table.
var Roles = []string{RoleUser, RoleMentor, RoleCoordinator, RoleSysAdmin}

// User is the core user entity. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	Username     string
	Email        string
	Name         string
	Surname      string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// NormalizeUsername returns the form used for uniqueness and lookup. Usernames are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToUpper(strings.TrimSpace(username))
}
