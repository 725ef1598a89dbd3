package support

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

const ticketColumns = `id, account_id, user_email, user_name, subject, status, priority,
	created_at, updated_at, last_message_at, is_read_by_admin, is_read_by_user`

// CreateTicket inserts a ticket row.
func (r *Repository) CreateTicket(ctx context.Context, ticket Ticket) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO support_tickets (`+ticketColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ticket.ID, ticket.AccountID, ticket.UserEmail, ticket.UserName, ticket.Subject,
		ticket.Status, ticket.Priority, ticket.CreatedAt, ticket.UpdatedAt,
		ticket.LastMessageAt, ticket.IsReadByAdmin, ticket.IsReadByUser)
	return err
}

// GetTicket fetches a single ticket by ID.
func (r *Repository) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id)
	return scanTicket(row)
}

// ListByAccount returns an account's tickets ordered by last activity.
func (r *Repository) ListByAccount(ctx context.Context, accountID string) ([]Ticket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM support_tickets WHERE account_id = $1 ORDER BY last_message_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

// ListAll returns every ticket ordered by last activity.
func (r *Repository) ListAll(ctx context.Context) ([]Ticket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM support_tickets ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

// GetMessages returns a ticket's thread ordered oldest first.
func (r *Repository) GetMessages(ctx context.Context, ticketID string) ([]Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ticket_id, sender_id, sender_name, sender_type, message, created_at, is_read
		 FROM support_messages WHERE ticket_id = $1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TicketID, &m.SenderID, &m.SenderName,
			&m.SenderType, &m.Body, &m.CreatedAt, &m.IsRead); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// AppendMessage inserts the message and updates the parent ticket's read
// flags and activity timestamps in one transaction. An admin sender flips
// the user's flag to unread and clears the admin side; a user sender flips
// the admin's flag to unread and leaves the user side untouched.
func (r *Repository) AppendMessage(ctx context.Context, msg Message) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO support_messages (id, ticket_id, sender_id, sender_name, sender_type, message, created_at, is_read)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			msg.ID, msg.TicketID, msg.SenderID, msg.SenderName, msg.SenderType,
			msg.Body, msg.CreatedAt, msg.IsRead); err != nil {
			return err
		}
		var err error
		if msg.SenderType == SenderAdmin {
			_, err = tx.Exec(ctx,
				`UPDATE support_tickets
				 SET is_read_by_user = FALSE, is_read_by_admin = TRUE,
				     last_message_at = $2, updated_at = $2
				 WHERE id = $1`, msg.TicketID, msg.CreatedAt)
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE support_tickets
				 SET is_read_by_admin = FALSE,
				     last_message_at = $2, updated_at = $2
				 WHERE id = $1`, msg.TicketID, msg.CreatedAt)
		}
		return err
	})
}

// UpdateStatus sets the ticket's status and refreshes updated_at.
func (r *Repository) UpdateStatus(ctx context.Context, ticketID, status string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE support_tickets SET status = $2, updated_at = $3 WHERE id = $1`,
		ticketID, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkRead clears the unread flag for one side of the conversation.
func (r *Repository) MarkRead(ctx context.Context, ticketID string, asAdmin bool) error {
	column := "is_read_by_user"
	if asAdmin {
		column = "is_read_by_admin"
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE support_tickets SET `+column+` = TRUE WHERE id = $1`, ticketID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountUnreadForAdmin counts tickets unread on the admin side.
func (r *Repository) CountUnreadForAdmin(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM support_tickets WHERE NOT is_read_by_admin`).Scan(&n)
	return n, err
}

// CountUnreadForAccount counts an account's tickets unread on the user side.
func (r *Repository) CountUnreadForAccount(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM support_tickets WHERE account_id = $1 AND NOT is_read_by_user`,
		accountID).Scan(&n)
	return n, err
}

func collectTickets(rows pgx.Rows) ([]Ticket, error) {
	var tickets []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.AccountID, &t.UserEmail, &t.UserName, &t.Subject,
		&t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt, &t.LastMessageAt,
		&t.IsReadByAdmin, &t.IsReadByUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
