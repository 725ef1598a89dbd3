package permissions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownTool indicates a definition referenced a tool outside the closed set.
var ErrUnknownTool = errors.New("permissions: unknown tool")

// RepositoryPort defines data access for definitions and grants.
type RepositoryPort interface {
	ListDefinitions(ctx context.Context) ([]Definition, error)
	GetDefinition(ctx context.Context, id string) (*Definition, error)
	CreateDefinition(ctx context.Context, def Definition) error
	DeleteDefinition(ctx context.Context, id string) error

	// Grant inserts the grant record and appends the permission ID to the
	// account's denormalized list if absent, atomically.
	Grant(ctx context.Context, grant Grant) error
	// Revoke deletes every grant record for the pair and removes the
	// permission ID from the account's denormalized list, atomically.
	Revoke(ctx context.Context, accountID, permissionID string) error

	// ActiveGrantTools resolves the tools covered by the account's active,
	// non-expired grants via their definitions.
	ActiveGrantTools(ctx context.Context, accountID string, now time.Time) ([]string, error)
	ListGrants(ctx context.Context, accountID string) ([]Grant, error)
}

// Registry manages permission definitions and per-account grants.
type Registry struct {
	repo RepositoryPort
}

// NewRegistry constructs a Registry.
func NewRegistry(repo RepositoryPort) *Registry {
	return &Registry{repo: repo}
}

// ListPermissions returns the permission catalog.
func (r *Registry) ListPermissions(ctx context.Context) ([]Definition, error) {
	return r.repo.ListDefinitions(ctx)
}

// CreatePermission adds a catalog entry and returns its ID.
func (r *Registry) CreatePermission(ctx context.Context, name, description, tool string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("permissions: name required")
	}
	if !ValidTool(tool) {
		return "", ErrUnknownTool
	}
	def := Definition{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Tool:        tool,
	}
	if err := r.repo.CreateDefinition(ctx, def); err != nil {
		return "", err
	}
	return def.ID, nil
}

// DeletePermission removes a catalog entry.
func (r *Registry) DeletePermission(ctx context.Context, id string) error {
	return r.repo.DeleteDefinition(ctx, id)
}

// GrantPermission records a grant for an account. The grant row and the
// account's denormalized permission list are written together.
func (r *Registry) GrantPermission(ctx context.Context, accountID, permissionID, grantedBy string) error {
	if _, err := r.repo.GetDefinition(ctx, permissionID); err != nil {
		return err
	}
	grant := Grant{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		PermissionID: permissionID,
		GrantedBy:    grantedBy,
		GrantedAt:    time.Now().UTC(),
		IsActive:     true,
	}
	return r.repo.Grant(ctx, grant)
}

// RevokePermission removes every grant of the permission from the account,
// duplicates included, together with the denormalized list entry.
func (r *Registry) RevokePermission(ctx context.Context, accountID, permissionID string) error {
	return r.repo.Revoke(ctx, accountID, permissionID)
}

// ListGrants returns all grant records for an account.
func (r *Registry) ListGrants(ctx context.Context, accountID string) ([]Grant, error) {
	return r.repo.ListGrants(ctx, accountID)
}
