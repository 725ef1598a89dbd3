package accounts

import (
	"context"
	"strings"
	"time"
)

// RepositoryPort defines data access methods for accounts and profiles.
type RepositoryPort interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	CreateAccount(ctx context.Context, acct Account, profile Profile) error
	ListAccounts(ctx context.Context) ([]Account, error)
	SetActive(ctx context.Context, id string, active bool) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	GetProfile(ctx context.Context, accountID string) (*Profile, error)
	UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) error
	UpdateAccountAndProfile(ctx context.Context, id string, update AccountUpdate, at time.Time) error
}

// Service handles account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetAccount fetches a single account.
func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// CreateAccount persists a fresh account with its mirrored profile.
func (s *Service) CreateAccount(ctx context.Context, acct Account) error {
	if acct.Permissions == nil {
		acct.Permissions = []string{}
	}
	profile := Profile{
		AccountID: acct.ID,
		FirstName: acct.FirstName,
		LastName:  acct.LastName,
		Email:     acct.Email,
	}
	return s.repo.CreateAccount(ctx, acct, profile)
}

// SynthesizeAccount builds the placeholder account created when an identity
// exists at the provider but no account record was ever written. The first
// name is derived from the email's local part.
func SynthesizeAccount(id, email string, now time.Time) Account {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	return Account{
		ID:          id,
		Email:       email,
		FirstName:   local,
		LastName:    "",
		Role:        RoleUser,
		Permissions: []string{},
		CreatedAt:   now,
		LastLoginAt: now,
		IsActive:    true,
	}
}

// ListAccounts returns all accounts ordered by creation time descending.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// SetActive toggles an account's active flag.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// TouchLastLogin records a successful login.
func (s *Service) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.repo.TouchLastLogin(ctx, id, at)
}

// GetProfile fetches the profile record for an account.
func (s *Service) GetProfile(ctx context.Context, accountID string) (*Profile, error) {
	return s.repo.GetProfile(ctx, accountID)
}

// UpdateProfile applies a partial update to the profile record only.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) error {
	return s.repo.UpdateProfile(ctx, accountID, update)
}

// UpdateAccountAndProfile writes the shared name/email fields to both the
// account and the profile record in one transaction, refreshing the
// account's last-login timestamp as a side effect.
func (s *Service) UpdateAccountAndProfile(ctx context.Context, id string, update AccountUpdate) error {
	return s.repo.UpdateAccountAndProfile(ctx, id, update, time.Now().UTC())
}
