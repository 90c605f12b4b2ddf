package domain

// Role represents the single role held by an authenticated principal.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleDriver     Role = "driver"
	RoleViewer     Role = "viewer"
)

// Principal is an authenticated actor as supplied by the identity provider.
// The core only ever reads the id and role; it never issues or validates
// credentials.
type Principal struct {
	ID   string
	Role Role
}
