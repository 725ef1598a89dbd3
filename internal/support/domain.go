package support

import "time"

// Ticket statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusClosed     = "closed"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Message sender types.
const (
	SenderUser  = "user"
	SenderAdmin = "admin"
)

// Ticket is a support request. Requester email and name are denormalized
// onto the ticket so the admin list renders without extra lookups.
type Ticket struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"accountId"`
	UserEmail     string    `json:"userEmail"`
	UserName      string    `json:"userName"`
	Subject       string    `json:"subject"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	IsReadByAdmin bool      `json:"isReadByAdmin"`
	IsReadByUser  bool      `json:"isReadByUser"`
}

// Message is one entry in a ticket's thread, append-only.
type Message struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticketId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	SenderType string    `json:"senderType"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
	IsRead     bool      `json:"isRead"`
}

// ValidStatus reports whether s is a recognised ticket status.
func ValidStatus(s string) bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusClosed
}

// ValidPriority reports whether p is a recognised ticket priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}
