// Package auth covers user accounts, credential checks and the session
// identity carried through request contexts.
package auth

import (
	"strconv"
	"time"

	"github.com/flaketech/quotebuilder/internal/shared"
)

// Roles. Admin manages the catalog and approves discount escalations; buyers
// only build quotations.
const (
	RoleAdmin = "admin"
	RoleBuyer = "buyer"
)

// Session value keys.
const (
	sessionKeyEmail = "user_email"
	sessionKeyName  = "user_name"
	sessionKeyRole  = "user_role"
)

// User is an account row.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated principal attached to a session.
type Identity struct {
	UserID int64
	Email  string
	Name   string
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// StoreIdentity writes the principal into the session.
func StoreIdentity(sess *shared.Session, u User) {
	sess.SetUser(strconv.FormatInt(u.ID, 10))
	sess.Set(sessionKeyEmail, u.Email)
	sess.Set(sessionKeyName, u.Name)
	sess.Set(sessionKeyRole, u.Role)
}

// IdentityFromSession reads the principal back out. The second return is
// false for anonymous sessions.
func IdentityFromSession(sess *shared.Session) (Identity, bool) {
	if sess == nil || sess.User() == "" {
		return Identity{}, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return Identity{}, false
	}
	return Identity{
		UserID: id,
		Email:  sess.Get(sessionKeyEmail),
		Name:   sess.Get(sessionKeyName),
		Role:   sess.Get(sessionKeyRole),
	}, true
}
