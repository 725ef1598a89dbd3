package support

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Validation errors.
var (
	ErrInvalidStatus   = errors.New("support: invalid ticket status")
	ErrInvalidPriority = errors.New("support: invalid ticket priority")
)

// RepositoryPort defines data access for tickets and messages.
type RepositoryPort interface {
	CreateTicket(ctx context.Context, ticket Ticket) error
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	ListByAccount(ctx context.Context, accountID string) ([]Ticket, error)
	ListAll(ctx context.Context) ([]Ticket, error)
	GetMessages(ctx context.Context, ticketID string) ([]Message, error)
	// AppendMessage inserts the message and applies the read-flag and
	// timestamp side effects to the parent ticket, atomically.
	AppendMessage(ctx context.Context, msg Message) error
	UpdateStatus(ctx context.Context, ticketID, status string, at time.Time) error
	MarkRead(ctx context.Context, ticketID string, asAdmin bool) error
	CountUnreadForAdmin(ctx context.Context) (int, error)
	CountUnreadForAccount(ctx context.Context, accountID string) (int, error)
}

// Service handles support ticket business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateTicket opens a new ticket. The creator has implicitly seen their own
// ticket, so it starts unread for admins and read for the user.
func (s *Service) CreateTicket(ctx context.Context, accountID, email, name, subject, priority string) (string, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return "", ErrInvalidPriority
	}
	now := time.Now().UTC()
	ticket := Ticket{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		UserEmail:     email,
		UserName:      name,
		Subject:       subject,
		Status:        StatusOpen,
		Priority:      priority,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastMessageAt: now,
		IsReadByAdmin: false,
		IsReadByUser:  true,
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return "", err
	}
	return ticket.ID, nil
}

// GetTicket fetches a ticket by ID.
func (s *Service) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	return s.repo.GetTicket(ctx, id)
}

// ListByAccount returns an account's tickets, most recent activity first.
func (s *Service) ListByAccount(ctx context.Context, accountID string) ([]Ticket, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

// ListAll returns every ticket, most recent activity first.
func (s *Service) ListAll(ctx context.Context) ([]Ticket, error) {
	return s.repo.ListAll(ctx)
}

// GetMessages returns a ticket's thread ordered oldest first.
func (s *Service) GetMessages(ctx context.Context, ticketID string) ([]Message, error) {
	if _, err := s.repo.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.repo.GetMessages(ctx, ticketID)
}

// SendMessage appends to a ticket's thread. An admin message marks the
// ticket unread for the user and read for admins; a user message marks it
// unread for admins and leaves the user flag untouched. Either way the
// activity timestamps are refreshed.
func (s *Service) SendMessage(ctx context.Context, ticketID, senderID, senderName, senderType, body string) (string, error) {
	if senderType != SenderUser && senderType != SenderAdmin {
		return "", errors.New("support: invalid sender type")
	}
	if _, err := s.repo.GetTicket(ctx, ticketID); err != nil {
		return "", err
	}
	msg := Message{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		SenderID:   senderID,
		SenderName: senderName,
		SenderType: senderType,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
		IsRead:     false,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// UpdateStatus moves a ticket to a new status.
func (s *Service) UpdateStatus(ctx context.Context, ticketID, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	return s.repo.UpdateStatus(ctx, ticketID, status, time.Now().UTC())
}

// MarkRead clears the unread flag for one side of the conversation.
func (s *Service) MarkRead(ctx context.Context, ticketID string, asAdmin bool) error {
	return s.repo.MarkRead(ctx, ticketID, asAdmin)
}

// UnreadForAdmin counts tickets awaiting an admin's attention.
func (s *Service) UnreadForAdmin(ctx context.Context) (int, error) {
	return s.repo.CountUnreadForAdmin(ctx)
}

// UnreadForAccount counts an account's tickets with unseen replies.
func (s *Service) UnreadForAccount(ctx context.Context, accountID string) (int, error) {
	return s.repo.CountUnreadForAccount(ctx, accountID)
}

// CanAccess reports whether the caller may view the ticket.
func CanAccess(ticket *Ticket, accountID string, isAdmin bool) bool {
	return isAdmin || (ticket != nil && ticket.AccountID == accountID)
}
