package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/examforge/examforge/internal/shared"
	_ "github.com/examforge/examforge/testing"
)

type mockRepository struct {
	byEmail map[string]*Identity
	byID    map[string]*Identity

	createError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		byEmail: make(map[string]*Identity),
		byID:    make(map[string]*Identity),
	}
}

func (m *mockRepository) Create(ctx context.Context, ident Identity) error {
	if m.createError != nil {
		return m.createError
	}
	i := ident
	m.byEmail[ident.Email] = &i
	m.byID[ident.ID] = &i
	return nil
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	i, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return i, nil
}

func (m *mockRepository) FindByID(ctx context.Context, id string) (*Identity, error) {
	i, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return i, nil
}

func (m *mockRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	i, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	i.PasswordHash = passwordHash
	return nil
}

type captureMailer struct {
	to      string
	subject string
	body    string
}

func (c *captureMailer) SendMail(ctx context.Context, to, subject, body string) error {
	c.to = to
	c.subject = subject
	c.body = body
	return nil
}

func newProvider(t *testing.T, repo Repository, mailer Mailer) *Provider {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if mailer == nil {
		mailer = &captureMailer{}
	}
	return NewProvider(repo, mailer, client, "https://examforge.local/reset-password")
}

func TestCreateIdentityValidations(t *testing.T) {
	provider := newProvider(t, newMockRepository(), nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
		cause    string
	}{
		{"invalid email", "not-an-email", "longenough1", shared.RegistrationInvalidEmail},
		{"weak password", "ok@example.com", "short", shared.RegistrationWeakPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := provider.CreateIdentity(ctx, tc.email, tc.password)
			var regErr *shared.RegistrationError
			require.ErrorAs(t, err, &regErr)
			assert.Equal(t, tc.cause, regErr.Cause)
		})
	}
}

func TestCreateIdentityDuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	provider := newProvider(t, repo, nil)
	ctx := context.Background()

	_, err := provider.CreateIdentity(ctx, "dup@example.com", "longenough1")
	require.NoError(t, err)

	_, err = provider.CreateIdentity(ctx, "dup@example.com", "longenough1")
	var regErr *shared.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, shared.RegistrationEmailInUse, regErr.Cause)
}

func TestCreateIdentityNormalizesEmail(t *testing.T) {
	repo := newMockRepository()
	provider := newProvider(t, repo, nil)

	ident, err := provider.CreateIdentity(context.Background(), "  Mixed@Example.COM ", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "mixed@example.com", ident.Email)
}

func TestAuthenticate(t *testing.T) {
	repo := newMockRepository()
	provider := newProvider(t, repo, nil)
	ctx := context.Background()

	created, err := provider.CreateIdentity(ctx, "login@example.com", "correcthorse")
	require.NoError(t, err)

	ident, err := provider.Authenticate(ctx, "login@example.com", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, ident.ID)

	_, err = provider.Authenticate(ctx, "login@example.com", "wrongpass")
	var authErr *shared.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, shared.AuthWrongPassword, authErr.Cause)

	_, err = provider.Authenticate(ctx, "nobody@example.com", "whatever")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, shared.AuthUnknownUser, authErr.Cause)

	_, err = provider.Authenticate(ctx, "not-an-email", "whatever")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, shared.AuthInvalidEmail, authErr.Cause)
}

func TestSetPasswordRejectsWeak(t *testing.T) {
	provider := newProvider(t, newMockRepository(), nil)

	err := provider.SetPassword(context.Background(), "id", "short")
	var regErr *shared.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, shared.RegistrationWeakPassword, regErr.Cause)
}

func TestSetPasswordRehashes(t *testing.T) {
	repo := newMockRepository()
	provider := newProvider(t, repo, nil)
	ctx := context.Background()

	ident, err := provider.CreateIdentity(ctx, "change@example.com", "originalpass")
	require.NoError(t, err)

	require.NoError(t, provider.SetPassword(ctx, ident.ID, "replacement1"))

	stored := repo.byID[ident.ID]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("replacement1")))
}

func TestResetFlow(t *testing.T) {
	repo := newMockRepository()
	mailer := &captureMailer{}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	provider := NewProvider(repo, mailer, client, "https://examforge.local/reset-password")
	ctx := context.Background()

	ident, err := provider.CreateIdentity(ctx, "reset@example.com", "originalpass")
	require.NoError(t, err)

	require.NoError(t, provider.SendResetEmail(ctx, "reset@example.com"))
	assert.Equal(t, "reset@example.com", mailer.to)
	assert.Contains(t, mailer.body, "https://examforge.local/reset-password?token=")

	// Pull the token straight out of the store.
	keys := mr.Keys()
	require.Len(t, keys, 1)
	token := keys[0][len("pwreset:"):]

	id, err := provider.ConsumeResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, ident.ID, id)

	// Single use.
	_, err = provider.ConsumeResetToken(ctx, token)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSendResetEmailUnknownUser(t *testing.T) {
	provider := newProvider(t, newMockRepository(), nil)

	err := provider.SendResetEmail(context.Background(), "ghost@example.com")
	var authErr *shared.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, shared.AuthUnknownUser, authErr.Cause)
}

func TestResetTokenExpires(t *testing.T) {
	repo := newMockRepository()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	provider := NewProvider(repo, &captureMailer{}, client, "https://examforge.local/reset-password")
	ctx := context.Background()

	_, err := provider.CreateIdentity(ctx, "expire@example.com", "originalpass")
	require.NoError(t, err)
	require.NoError(t, provider.SendResetEmail(ctx, "expire@example.com"))

	mr.FastForward(2 * time.Hour)

	keys := mr.Keys()
	assert.Empty(t, keys, "token should be gone after TTL")
}
