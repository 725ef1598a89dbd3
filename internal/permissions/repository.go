package permissions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examforge/examforge/internal/platform/db"
	"github.com/examforge/examforge/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListDefinitions returns the catalog ordered by name.
func (r *Repository) ListDefinitions(ctx context.Context) ([]Definition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, tool FROM permission_defs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []Definition
	for rows.Next() {
		var def Definition
		if err := rows.Scan(&def.ID, &def.Name, &def.Description, &def.Tool); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

// GetDefinition fetches a catalog entry by ID.
func (r *Repository) GetDefinition(ctx context.Context, id string) (*Definition, error) {
	var def Definition
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, tool FROM permission_defs WHERE id = $1`, id).
		Scan(&def.ID, &def.Name, &def.Description, &def.Tool)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &def, nil
}

// CreateDefinition inserts a catalog entry.
func (r *Repository) CreateDefinition(ctx context.Context, def Definition) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO permission_defs (id, name, description, tool) VALUES ($1, $2, $3, $4)`,
		def.ID, def.Name, def.Description, def.Tool)
	return err
}

// DeleteDefinition removes a catalog entry.
func (r *Repository) DeleteDefinition(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permission_defs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Grant inserts the grant record and appends the permission ID to the
// account's denormalized list if absent. Both writes commit together.
func (r *Repository) Grant(ctx context.Context, grant Grant) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO permission_grants (id, account_id, permission_id, granted_by, granted_at, expires_at, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			grant.ID, grant.AccountID, grant.PermissionID, grant.GrantedBy,
			grant.GrantedAt, grant.ExpiresAt, grant.IsActive); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE accounts
			 SET permission_ids = array_append(permission_ids, $2)
			 WHERE id = $1 AND NOT ($2 = ANY(permission_ids))`,
			grant.AccountID, grant.PermissionID)
		if err != nil {
			return err
		}
		// Zero rows either means the entry was already present or the
		// account is missing; distinguish so a bad account ID fails loudly.
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, grant.AccountID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return shared.ErrNotFound
			}
		}
		return nil
	})
}

// Revoke deletes every grant record for the pair and removes the permission
// ID from the account's denormalized list. Both writes commit together.
func (r *Repository) Revoke(ctx context.Context, accountID, permissionID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM permission_grants WHERE account_id = $1 AND permission_id = $2`,
			accountID, permissionID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE accounts SET permission_ids = array_remove(permission_ids, $2) WHERE id = $1`,
			accountID, permissionID)
		return err
	})
}

// ActiveGrantTools resolves the tool names covered by the account's active,
// non-expired grants by joining grants to their definitions.
func (r *Repository) ActiveGrantTools(ctx context.Context, accountID string, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT d.tool
		 FROM permission_grants g
		 JOIN permission_defs d ON d.id = g.permission_id
		 WHERE g.account_id = $1
		   AND g.is_active
		   AND (g.expires_at IS NULL OR g.expires_at > $2)`,
		accountID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tools []string
	for rows.Next() {
		var tool string
		if err := rows.Scan(&tool); err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tools, nil
}

// ListGrants returns all grant records for an account, newest first.
func (r *Repository) ListGrants(ctx context.Context, accountID string) ([]Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, permission_id, granted_by, granted_at, expires_at, is_active
		 FROM permission_grants WHERE account_id = $1 ORDER BY granted_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.AccountID, &g.PermissionID, &g.GrantedBy,
			&g.GrantedAt, &g.ExpiresAt, &g.IsActive); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}
