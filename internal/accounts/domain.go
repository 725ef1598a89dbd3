package accounts

import (
	"time"

	"github.com/examforge/examforge/internal/shared"
)

// Roles recognised by the platform.
const (
	RoleUser  = shared.RoleUser
	RoleAdmin = shared.RoleAdmin
)

// Account represents a registered user of the platform. The Permissions list
// mirrors the IDs of the account's active grants; it is a display-oriented
// read model kept in step by the permission registry, never consulted for
// authorization decisions.
type Account struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
	IsActive    bool      `json:"isActive"`
}

// IsAdmin reports whether the account carries the admin role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// Profile is a secondary record mirroring a subset of the account plus
// optional study details. It is kept eventually consistent with the account.
type Profile struct {
	AccountID   string `json:"accountId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Institution string `json:"institution,omitempty"`
	StudyLevel  string `json:"studyLevel,omitempty"`
}

// ProfileUpdate carries a partial profile change; nil fields are left as-is.
type ProfileUpdate struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Institution *string `json:"institution"`
	StudyLevel  *string `json:"studyLevel"`
}

// AccountUpdate carries a partial account change; nil fields are left as-is.
type AccountUpdate struct {
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}
