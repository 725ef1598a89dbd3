package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examforge/examforge/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence for identities.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a new identity record.
func (r *PGRepository) Create(ctx context.Context, ident Identity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO identities (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		ident.ID, ident.Email, ident.PasswordHash, ident.CreatedAt)
	return err
}

// FindByEmail looks up an identity by its (lowercased) email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE email = $1`, email)
	return scanIdentity(row)
}

// FindByID looks up an identity by ID.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Identity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// UpdatePassword replaces the stored password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE identities SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanIdentity(row pgx.Row) (*Identity, error) {
	var ident Identity
	if err := row.Scan(&ident.ID, &ident.Email, &ident.PasswordHash, &ident.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ident, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
