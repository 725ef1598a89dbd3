package shared

// Roles recognised by the platform. Defined here so middleware and session
// code can check them without depending on the accounts package.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
