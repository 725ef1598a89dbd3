package accounts

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examforge/examforge/internal/shared"
	_ "github.com/examforge/examforge/testing"
)

type mockRepository struct {
	accounts map[string]*Account
	profiles map[string]*Profile

	createError error
	updateError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts: make(map[string]*Account),
		profiles: make(map[string]*Profile),
	}
}

func (m *mockRepository) GetAccount(ctx context.Context, id string) (*Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockRepository) CreateAccount(ctx context.Context, acct Account, profile Profile) error {
	if m.createError != nil {
		return m.createError
	}
	a := acct
	p := profile
	m.accounts[acct.ID] = &a
	m.profiles[acct.ID] = &p
	return nil
}

func (m *mockRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockRepository) SetActive(ctx context.Context, id string, active bool) error {
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.IsActive = active
	return nil
}

func (m *mockRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.LastLoginAt = at
	return nil
}

func (m *mockRepository) GetProfile(ctx context.Context, accountID string) (*Profile, error) {
	p, ok := m.profiles[accountID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockRepository) UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) error {
	if m.updateError != nil {
		return m.updateError
	}
	p, ok := m.profiles[accountID]
	if !ok {
		return shared.ErrNotFound
	}
	applyProfileUpdate(p, update)
	return nil
}

func (m *mockRepository) UpdateAccountAndProfile(ctx context.Context, id string, update AccountUpdate, at time.Time) error {
	if m.updateError != nil {
		return m.updateError
	}
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	if update.Email != nil {
		a.Email = *update.Email
	}
	if update.FirstName != nil {
		a.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		a.LastName = *update.LastName
	}
	if p, ok := m.profiles[id]; ok {
		applyProfileUpdate(p, ProfileUpdate{Email: update.Email, FirstName: update.FirstName, LastName: update.LastName})
	}
	return nil
}

func applyProfileUpdate(p *Profile, update ProfileUpdate) {
	if update.FirstName != nil {
		p.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		p.LastName = *update.LastName
	}
	if update.Email != nil {
		p.Email = *update.Email
	}
	if update.Phone != nil {
		p.Phone = *update.Phone
	}
	if update.Institution != nil {
		p.Institution = *update.Institution
	}
	if update.StudyLevel != nil {
		p.StudyLevel = *update.StudyLevel
	}
}

func TestCreateAccountMirrorsProfile(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	err := svc.CreateAccount(context.Background(), Account{
		ID:        "acct-1",
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      RoleUser,
	})
	require.NoError(t, err)

	profile := repo.profiles["acct-1"]
	require.NotNil(t, profile)
	assert.Equal(t, "Jane", profile.FirstName)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.NotNil(t, repo.accounts["acct-1"].Permissions, "permission list defaults to empty, not nil")
}

func TestSynthesizeAccountDerivesNameFromEmail(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	acct := SynthesizeAccount("acct-1", "marco.rossi@example.com", now)

	assert.Equal(t, "marco.rossi", acct.FirstName)
	assert.Empty(t, acct.LastName)
	assert.Equal(t, RoleUser, acct.Role)
	assert.Empty(t, acct.Permissions)
	assert.True(t, acct.IsActive)
	assert.Equal(t, now, acct.CreatedAt)
	assert.Equal(t, now, acct.LastLoginAt)
}

func TestSynthesizeAccountHandlesOddEmails(t *testing.T) {
	acct := SynthesizeAccount("acct-1", "@weird", time.Now())
	assert.Equal(t, "@weird", acct.FirstName)
}

func TestListAccountsNewestFirst(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, svc.CreateAccount(ctx, Account{
			ID:        id,
			Email:     id + "@example.com",
			CreatedAt: base.AddDate(0, 0, i),
		}))
	}

	accts, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accts, 3)
	assert.Equal(t, "c", accts[0].ID)
	assert.Equal(t, "a", accts[2].ID)
}

func TestUpdateAccountAndProfileKeepsRecordsInStep(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.CreateAccount(ctx, Account{ID: "acct-1", Email: "old@example.com", FirstName: "Old"}))

	email := "new@example.com"
	first := "New"
	require.NoError(t, svc.UpdateAccountAndProfile(ctx, "acct-1", AccountUpdate{Email: &email, FirstName: &first}))

	assert.Equal(t, "new@example.com", repo.accounts["acct-1"].Email)
	assert.Equal(t, "new@example.com", repo.profiles["acct-1"].Email)
	assert.Equal(t, "New", repo.profiles["acct-1"].FirstName)
}
