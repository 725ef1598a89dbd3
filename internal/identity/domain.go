package identity

import "time"

// Identity is a credential record held by the identity provider. It is
// deliberately minimal: everything user-facing lives on the account.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// MinPasswordLength is the weakest password the provider accepts.
const MinPasswordLength = 8
