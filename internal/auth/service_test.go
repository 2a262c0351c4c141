package auth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/shared"
)

type stubRepo struct {
	users     map[string]User
	updatedID int64
	updated   string
}

func (r *stubRepo) FindByEmail(_ context.Context, email string) (User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, httpx.ErrNotFound
}

func (r *stubRepo) UpdatePassword(_ context.Context, userID int64, hash string) error {
	r.updatedID = userID
	r.updated = hash
	return nil
}

func (r *stubRepo) ListActive(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

type stubMail struct {
	email    string
	password string
}

func (m *stubMail) EnqueuePasswordReset(_ context.Context, email, _, tempPassword string) error {
	m.email = email
	m.password = tempPassword
	return nil
}

func testUser(t *testing.T, email, password string, active bool) User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return User{ID: 7, Email: email, Name: "Test User", PasswordHash: string(hash), Role: RoleBuyer, IsActive: active}
}

func TestAuthenticate(t *testing.T) {
	repo := &stubRepo{users: map[string]User{
		"a": testUser(t, "buyer@flaketech.com", "secret123", true),
	}}
	svc := NewService(slog.Default(), repo, nil)

	u, err := svc.Authenticate(context.Background(), "buyer@flaketech.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)

	_, err = svc.Authenticate(context.Background(), "buyer@flaketech.com", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@flaketech.com", "secret123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactive(t *testing.T) {
	repo := &stubRepo{users: map[string]User{
		"a": testUser(t, "gone@flaketech.com", "secret123", false),
	}}
	svc := NewService(slog.Default(), repo, nil)

	_, err := svc.Authenticate(context.Background(), "gone@flaketech.com", "secret123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResetPassword(t *testing.T) {
	repo := &stubRepo{users: map[string]User{
		"a": testUser(t, "buyer@flaketech.com", "old", true),
	}}
	mail := &stubMail{}
	svc := NewService(slog.Default(), repo, mail)

	require.NoError(t, svc.ResetPassword(context.Background(), "buyer@flaketech.com"))

	assert.Equal(t, int64(7), repo.updatedID)
	assert.Len(t, mail.password, tempPasswordLength)
	assert.Equal(t, "buyer@flaketech.com", mail.email)
	// Stored hash must verify against the mailed plaintext.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updated), []byte(mail.password)))
}

func TestResetPasswordUnknownEmailIsSilent(t *testing.T) {
	repo := &stubRepo{users: map[string]User{}}
	mail := &stubMail{}
	svc := NewService(slog.Default(), repo, mail)

	require.NoError(t, svc.ResetPassword(context.Background(), "nobody@flaketech.com"))
	assert.Empty(t, mail.email)
}

func TestIdentityRoundTrip(t *testing.T) {
	sess := &shared.Session{}
	_, ok := IdentityFromSession(sess)
	assert.False(t, ok)

	StoreIdentity(sess, User{ID: 42, Email: "admin@flaketech.com", Name: "Admin", Role: RoleAdmin})
	ident, ok := IdentityFromSession(sess)
	require.True(t, ok)
	assert.Equal(t, int64(42), ident.UserID)
	assert.True(t, ident.IsAdmin())
}
