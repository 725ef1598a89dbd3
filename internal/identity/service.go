package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/examforge/examforge/internal/shared"
)

// Repository defines persistence for identity records.
type Repository interface {
	Create(ctx context.Context, ident Identity) error
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// Mailer delivers out-of-band mail, typically by enqueueing a background task.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// Provider implements the identity-provider contract: credential creation,
// authentication, password changes and reset emails.
type Provider struct {
	repo         Repository
	mailer       Mailer
	tokens       *redis.Client
	resetBaseURL string
	resetTTL     time.Duration
}

// NewProvider constructs a Provider.
func NewProvider(repo Repository, mailer Mailer, tokens *redis.Client, resetBaseURL string) *Provider {
	return &Provider{
		repo:         repo,
		mailer:       mailer,
		tokens:       tokens,
		resetBaseURL: resetBaseURL,
		resetTTL:     time.Hour,
	}
}

// CreateIdentity registers a new credential record. Email and password are
// validated here so that registration failures surface as distinct causes.
func (p *Provider) CreateIdentity(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, &shared.RegistrationError{Cause: shared.RegistrationInvalidEmail}
	}
	if len(password) < MinPasswordLength {
		return nil, &shared.RegistrationError{Cause: shared.RegistrationWeakPassword}
	}
	if existing, err := p.repo.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, &shared.RegistrationError{Cause: shared.RegistrationEmailInUse}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}
	ident := Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.repo.Create(ctx, ident); err != nil {
		if isUniqueViolation(err) {
			return nil, &shared.RegistrationError{Cause: shared.RegistrationEmailInUse}
		}
		return nil, &shared.StoreError{Op: "create identity", Err: err}
	}
	return &ident, nil
}

// Authenticate validates email/password credentials.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, &shared.AuthenticationError{Cause: shared.AuthInvalidEmail}
	}
	ident, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &shared.AuthenticationError{Cause: shared.AuthUnknownUser}
		}
		return nil, &shared.StoreError{Op: "find identity", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return nil, &shared.AuthenticationError{Cause: shared.AuthWrongPassword}
	}
	return ident, nil
}

// SetPassword replaces the password for an authenticated identity.
func (p *Provider) SetPassword(ctx context.Context, id, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return &shared.RegistrationError{Cause: shared.RegistrationWeakPassword}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	if err := p.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return &shared.StoreError{Op: "update password", Err: err}
	}
	return nil
}

// SendResetEmail issues a single-use reset token and mails a reset link.
func (p *Provider) SendResetEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return &shared.AuthenticationError{Cause: shared.AuthInvalidEmail}
	}
	ident, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &shared.AuthenticationError{Cause: shared.AuthUnknownUser}
		}
		return &shared.StoreError{Op: "find identity", Err: err}
	}

	token := uuid.NewString()
	if err := p.tokens.Set(ctx, resetKey(token), ident.ID, p.resetTTL).Err(); err != nil {
		return &shared.StoreError{Op: "store reset token", Err: err}
	}

	link := p.resetBaseURL + "?token=" + token
	body := "A password reset was requested for your account.\n\n" +
		"Open the link below to choose a new password. The link expires in one hour.\n\n" + link
	return p.mailer.SendMail(ctx, ident.Email, "Reset your password", body)
}

// ConsumeResetToken resolves a reset token to an identity ID and invalidates it.
func (p *Provider) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	id, err := p.tokens.GetDel(ctx, resetKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shared.ErrNotFound
		}
		return "", &shared.StoreError{Op: "consume reset token", Err: err}
	}
	return id, nil
}

func resetKey(token string) string {
	return "pwreset:" + token
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
