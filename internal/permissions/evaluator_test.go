package permissions

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examforge/examforge/internal/shared"
	_ "github.com/examforge/examforge/testing"
)

type mockRepository struct {
	defs   map[string]Definition
	grants []Grant

	// Error injection
	grantError  error
	revokeError error
	listError   error

	// Denormalized permission lists, keyed by account ID.
	permissionLists map[string][]string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		defs:            make(map[string]Definition),
		permissionLists: make(map[string][]string),
	}
}

func (m *mockRepository) ListDefinitions(ctx context.Context) ([]Definition, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	defs := make([]Definition, 0, len(m.defs))
	for _, d := range m.defs {
		defs = append(defs, d)
	}
	return defs, nil
}

func (m *mockRepository) GetDefinition(ctx context.Context, id string) (*Definition, error) {
	d, ok := m.defs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (m *mockRepository) CreateDefinition(ctx context.Context, def Definition) error {
	m.defs[def.ID] = def
	return nil
}

func (m *mockRepository) DeleteDefinition(ctx context.Context, id string) error {
	if _, ok := m.defs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.defs, id)
	return nil
}

func (m *mockRepository) Grant(ctx context.Context, grant Grant) error {
	if m.grantError != nil {
		return m.grantError
	}
	m.grants = append(m.grants, grant)
	list := m.permissionLists[grant.AccountID]
	if !slices.Contains(list, grant.PermissionID) {
		m.permissionLists[grant.AccountID] = append(list, grant.PermissionID)
	}
	return nil
}

func (m *mockRepository) Revoke(ctx context.Context, accountID, permissionID string) error {
	if m.revokeError != nil {
		return m.revokeError
	}
	kept := m.grants[:0]
	for _, g := range m.grants {
		if g.AccountID == accountID && g.PermissionID == permissionID {
			continue
		}
		kept = append(kept, g)
	}
	m.grants = kept
	list := m.permissionLists[accountID]
	if i := slices.Index(list, permissionID); i >= 0 {
		m.permissionLists[accountID] = slices.Delete(list, i, i+1)
	}
	return nil
}

func (m *mockRepository) ActiveGrantTools(ctx context.Context, accountID string, now time.Time) ([]string, error) {
	var tools []string
	for _, g := range m.grants {
		if g.AccountID != accountID || !g.IsActive || g.Expired(now) {
			continue
		}
		def, ok := m.defs[g.PermissionID]
		if !ok {
			continue
		}
		if !slices.Contains(tools, def.Tool) {
			tools = append(tools, def.Tool)
		}
	}
	return tools, nil
}

func (m *mockRepository) ListGrants(ctx context.Context, accountID string) ([]Grant, error) {
	var grants []Grant
	for _, g := range m.grants {
		if g.AccountID == accountID {
			grants = append(grants, g)
		}
	}
	return grants, nil
}

func seedDefinition(t *testing.T, repo *mockRepository, id, tool string) {
	t.Helper()
	repo.defs[id] = Definition{ID: id, Name: id, Tool: tool}
}

func TestAdminPassesForAnyTool(t *testing.T) {
	eval := NewEvaluator(newMockRepository())

	for _, tool := range append(KnownTools(), "made-up-tool") {
		ok, err := eval.HasPermission(context.Background(), "acct-1", shared.RoleAdmin, tool)
		require.NoError(t, err)
		assert.True(t, ok, "admin should pass for %q", tool)
	}
}

func TestUserWithoutGrantsDenied(t *testing.T) {
	eval := NewEvaluator(newMockRepository())

	ok, err := eval.HasPermission(context.Background(), "acct-1", shared.RoleUser, ToolQuestionGenerator)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGrantThenRevokeRoundTrip(t *testing.T) {
	repo := newMockRepository()
	seedDefinition(t, repo, "perm-qg", ToolQuestionGenerator)
	registry := NewRegistry(repo)
	eval := NewEvaluator(repo)
	ctx := context.Background()

	require.NoError(t, registry.GrantPermission(ctx, "acct-1", "perm-qg", "admin-1"))

	ok, err := eval.HasPermission(ctx, "acct-1", shared.RoleUser, ToolQuestionGenerator)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, repo.permissionLists["acct-1"], "perm-qg")

	require.NoError(t, registry.RevokePermission(ctx, "acct-1", "perm-qg"))

	ok, err = eval.HasPermission(ctx, "acct-1", shared.RoleUser, ToolQuestionGenerator)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, repo.permissionLists["acct-1"], "perm-qg")
}

func TestRevokeKeepsAccessWhenAnotherGrantCovers(t *testing.T) {
	repo := newMockRepository()
	seedDefinition(t, repo, "perm-qg", ToolQuestionGenerator)
	seedDefinition(t, repo, "perm-all", ToolAll)
	registry := NewRegistry(repo)
	eval := NewEvaluator(repo)
	ctx := context.Background()

	require.NoError(t, registry.GrantPermission(ctx, "acct-1", "perm-qg", "admin-1"))
	require.NoError(t, registry.GrantPermission(ctx, "acct-1", "perm-all", "admin-1"))
	require.NoError(t, registry.RevokePermission(ctx, "acct-1", "perm-qg"))

	ok, err := eval.HasPermission(ctx, "acct-1", shared.RoleUser, ToolQuestionGenerator)
	require.NoError(t, err)
	assert.True(t, ok, "wildcard grant should still cover the tool")
}

func TestWildcardExpandsToEveryKnownTool(t *testing.T) {
	repo := newMockRepository()
	seedDefinition(t, repo, "perm-all", ToolAll)
	repo.grants = append(repo.grants, Grant{
		ID: "g1", AccountID: "acct-1", PermissionID: "perm-all",
		GrantedAt: time.Now(), IsActive: true,
	})
	eval := NewEvaluator(repo)

	tools, err := eval.EffectiveTools(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, KnownTools(), tools)
}

func TestExpiredGrantDoesNotAuthorize(t *testing.T) {
	repo := newMockRepository()
	seedDefinition(t, repo, "perm-qg", ToolQuestionGenerator)
	past := time.Now().Add(-time.Hour)
	repo.grants = append(repo.grants, Grant{
		ID: "g1", AccountID: "acct-1", PermissionID: "perm-qg",
		GrantedAt: past.Add(-time.Hour), ExpiresAt: &past, IsActive: true,
	})
	eval := NewEvaluator(repo)

	ok, err := eval.HasPermission(context.Background(), "acct-1", shared.RoleUser, ToolQuestionGenerator)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInactiveGrantDoesNotAuthorize(t *testing.T) {
	repo := newMockRepository()
	seedDefinition(t, repo, "perm-qg", ToolQuestionGenerator)
	repo.grants = append(repo.grants, Grant{
		ID: "g1", AccountID: "acct-1", PermissionID: "perm-qg",
		GrantedAt: time.Now(), IsActive: false,
	})
	eval := NewEvaluator(repo)

	ok, err := eval.HasPermission(context.Background(), "acct-1", shared.RoleUser, ToolQuestionGenerator)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToolsForAccount(t *testing.T) {
	repo := newMockRepository()
	seedDefinition(t, repo, "perm-we", ToolWritingEvaluator)
	repo.grants = append(repo.grants, Grant{
		ID: "g1", AccountID: "acct-1", PermissionID: "perm-we",
		GrantedAt: time.Now(), IsActive: true,
	})
	eval := NewEvaluator(repo)
	ctx := context.Background()

	tools, err := eval.ToolsForAccount(ctx, "acct-1", shared.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, []string{ToolWritingEvaluator}, tools)

	tools, err = eval.ToolsForAccount(ctx, "acct-2", shared.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, KnownTools(), tools)
}
