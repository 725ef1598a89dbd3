package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/examforge/examforge/internal/accounts"
	"github.com/examforge/examforge/internal/identity"
	"github.com/examforge/examforge/internal/permissions"
	"github.com/examforge/examforge/internal/shared"
)

const (
	maxFailedLogins   = 5
	failedLoginWindow = 15 * time.Minute
)

// Service is the authentication gateway. It composes the identity provider,
// the account store and the authorization evaluator into the register, login
// and password flows.
type Service struct {
	logger    *slog.Logger
	provider  *identity.Provider
	accounts  *accounts.Service
	evaluator *permissions.Evaluator
	limiter   *redis.Client
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, provider *identity.Provider, accountsSvc *accounts.Service, evaluator *permissions.Evaluator, limiter *redis.Client) *Service {
	return &Service{
		logger:    logger,
		provider:  provider,
		accounts:  accountsSvc,
		evaluator: evaluator,
		limiter:   limiter,
	}
}

// Register creates the identity with the provider, then writes the account
// and profile records with role fixed to user.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*accounts.Account, error) {
	ident, err := s.provider.CreateIdentity(ctx, email, password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	acct := accounts.Account{
		ID:          ident.ID,
		Email:       ident.Email,
		FirstName:   firstName,
		LastName:    lastName,
		Role:        accounts.RoleUser,
		Permissions: []string{},
		CreatedAt:   now,
		LastLoginAt: now,
		IsActive:    true,
	}
	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		return nil, &shared.StoreError{Op: "create account", Err: err}
	}
	return &acct, nil
}

// Login authenticates the credentials and returns the account together with
// its effective tool list for session caching. An identity with no account
// record gets a placeholder account synthesized and persisted on the fly.
func (s *Service) Login(ctx context.Context, email, password string) (*accounts.Account, []string, error) {
	if s.lockedOut(ctx, email) {
		return nil, nil, &shared.AuthenticationError{Cause: shared.AuthRateLimited}
	}

	ident, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		var authErr *shared.AuthenticationError
		if errors.As(err, &authErr) && authErr.Cause == shared.AuthWrongPassword {
			s.recordFailure(ctx, email)
		}
		return nil, nil, err
	}
	s.clearFailures(ctx, email)

	acct, err := s.accounts.GetAccount(ctx, ident.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, nil, &shared.StoreError{Op: "get account", Err: err}
		}
		synth := accounts.SynthesizeAccount(ident.ID, ident.Email, time.Now().UTC())
		if err := s.accounts.CreateAccount(ctx, synth); err != nil {
			return nil, nil, &shared.StoreError{Op: "synthesize account", Err: err}
		}
		s.logger.Info("synthesized missing account record", slog.String("account", synth.ID))
		acct = &synth
	}

	if !acct.IsActive {
		return nil, nil, shared.ErrForbidden
	}

	now := time.Now().UTC()
	if err := s.accounts.TouchLastLogin(ctx, acct.ID, now); err != nil {
		s.logger.Warn("touch last login", slog.Any("error", err))
	}
	acct.LastLoginAt = now

	tools, err := s.evaluator.ToolsForAccount(ctx, acct.ID, acct.Role)
	if err != nil {
		return nil, nil, err
	}
	return acct, tools, nil
}

// ChangePassword replaces the password of an authenticated account.
func (s *Service) ChangePassword(ctx context.Context, accountID, newPassword string) error {
	return s.provider.SetPassword(ctx, accountID, newPassword)
}

// ResetPassword sends a password reset email for the address.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	return s.provider.SendResetEmail(ctx, email)
}

// ConfirmReset redeems a reset token and sets the new password.
func (s *Service) ConfirmReset(ctx context.Context, token, newPassword string) error {
	id, err := s.provider.ConsumeResetToken(ctx, token)
	if err != nil {
		return err
	}
	return s.provider.SetPassword(ctx, id, newPassword)
}

func failKey(email string) string {
	return "loginfail:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) lockedOut(ctx context.Context, email string) bool {
	if s.limiter == nil {
		return false
	}
	n, err := s.limiter.Get(ctx, failKey(email)).Int()
	if err != nil {
		return false
	}
	return n >= maxFailedLogins
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	pipe := s.limiter.TxPipeline()
	pipe.Incr(ctx, failKey(email))
	pipe.Expire(ctx, failKey(email), failedLoginWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("record login failure", slog.Any("error", err))
	}
}

func (s *Service) clearFailures(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Del(ctx, failKey(email)).Err(); err != nil {
		s.logger.Warn("clear login failures", slog.Any("error", err))
	}
}
