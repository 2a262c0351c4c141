package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/flaketech/quotebuilder/internal/platform/httpx"
	"github.com/flaketech/quotebuilder/internal/shared"
)

const tempPasswordLength = 12

// Ambiguous glyphs (0/O, 1/l/I) are excluded because temporary passwords are
// retyped from an email.
const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// MailEnqueuer delivers the temporary password out of band.
type MailEnqueuer interface {
	EnqueuePasswordReset(ctx context.Context, email, name, tempPassword string) error
}

// Service implements credential checks and password resets.
type Service struct {
	logger *slog.Logger
	repo   Repository
	mail   MailEnqueuer
}

// NewService constructs a Service. mail may be nil when SMTP is not
// configured; resets then fail with ErrUnavailable instead of silently
// dropping the email.
func NewService(logger *slog.Logger, repo Repository, mail MailEnqueuer) *Service {
	return &Service{logger: logger, repo: repo, mail: mail}
}

// Authenticate verifies the credentials and returns the account. Unknown
// emails, wrong passwords and inactive accounts all map to the same error so
// the response does not leak which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return User{}, shared.ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	if !u.IsActive {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return u, nil
}

// ResetPassword issues a temporary password and mails it to the account. The
// reply is identical whether or not the account exists.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			s.logger.Info("password reset for unknown email", slog.String("email", email))
			return nil
		}
		return fmt.Errorf("auth: lookup user: %w", err)
	}
	if !u.IsActive {
		return nil
	}
	if s.mail == nil {
		return fmt.Errorf("%w: mail delivery not configured", httpx.ErrUnavailable)
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return fmt.Errorf("auth: generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return fmt.Errorf("auth: store password: %w", err)
	}
	if err := s.mail.EnqueuePasswordReset(ctx, u.Email, u.Name, tempPassword); err != nil {
		return fmt.Errorf("auth: enqueue reset mail: %w", err)
	}
	s.logger.Info("password reset issued", slog.String("email", u.Email))
	return nil
}

func generateTempPassword() (string, error) {
	out := make([]byte, tempPasswordLength)
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
