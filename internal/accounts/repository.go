package accounts

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

const accountColumns = `id, email, first_name, last_name, role, permission_ids, created_at, last_login_at, is_active`

// GetAccount fetches a single account by ID.
func (r *Repository) GetAccount(ctx context.Context, id string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// CreateAccount inserts the account and its mirrored profile in one transaction.
func (r *Repository) CreateAccount(ctx context.Context, acct Account, profile Profile) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO accounts (id, email, first_name, last_name, role, permission_ids, created_at, last_login_at, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			acct.ID, acct.Email, acct.FirstName, acct.LastName, acct.Role, acct.Permissions,
			acct.CreatedAt, acct.LastLoginAt, acct.IsActive); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO profiles (account_id, first_name, last_name, email, phone, institution, study_level)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			profile.AccountID, profile.FirstName, profile.LastName, profile.Email,
			nullable(profile.Phone), nullable(profile.Institution), nullable(profile.StudyLevel))
		return err
	})
}

// ListAccounts returns all accounts ordered by creation time descending.
func (r *Repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accts []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accts = append(accts, *acct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accts, nil
}

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TouchLastLogin updates the last-login timestamp.
func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// GetProfile fetches the profile record for an account.
func (r *Repository) GetProfile(ctx context.Context, accountID string) (*Profile, error) {
	var p Profile
	var phone, institution, studyLevel *string
	err := r.pool.QueryRow(ctx,
		`SELECT account_id, first_name, last_name, email, phone, institution, study_level
		 FROM profiles WHERE account_id = $1`, accountID).
		Scan(&p.AccountID, &p.FirstName, &p.LastName, &p.Email, &phone, &institution, &studyLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p.Phone = deref(phone)
	p.Institution = deref(institution)
	p.StudyLevel = deref(studyLevel)
	return &p, nil
}

// UpdateProfile applies a partial update to the profile record.
func (r *Repository) UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET
			first_name  = COALESCE($2, first_name),
			last_name   = COALESCE($3, last_name),
			email       = COALESCE($4, email),
			phone       = COALESCE($5, phone),
			institution = COALESCE($6, institution),
			study_level = COALESCE($7, study_level)
		 WHERE account_id = $1`,
		accountID, update.FirstName, update.LastName, update.Email,
		update.Phone, update.Institution, update.StudyLevel)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateAccountAndProfile writes the shared fields to both records in one
// transaction and refreshes the account's last-login timestamp.
func (r *Repository) UpdateAccountAndProfile(ctx context.Context, id string, update AccountUpdate, at time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE accounts SET
				email         = COALESCE($2, email),
				first_name    = COALESCE($3, first_name),
				last_name     = COALESCE($4, last_name),
				last_login_at = $5
			 WHERE id = $1`,
			id, update.Email, update.FirstName, update.LastName, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE profiles SET
				email      = COALESCE($2, email),
				first_name = COALESCE($3, first_name),
				last_name  = COALESCE($4, last_name)
			 WHERE account_id = $1`,
			id, update.Email, update.FirstName, update.LastName)
		return err
	})
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acct Account
	if err := row.Scan(&acct.ID, &acct.Email, &acct.FirstName, &acct.LastName, &acct.Role,
		&acct.Permissions, &acct.CreatedAt, &acct.LastLoginAt, &acct.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if acct.Permissions == nil {
		acct.Permissions = []string{}
	}
	return &acct, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
