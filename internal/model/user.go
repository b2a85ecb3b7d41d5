package model

// Role is the coarse capability tier of a user.
type Role string

const (
	RoleApprentice Role = "apprentice"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleApprentice || r == RoleAdmin
}

// User represents an application user record as stored in the `users`
// table.  PasswordHash is a bcrypt hash and is never exposed in templates
// or JSON.
type User struct {
	ID           int64  // users.id
	Username     string // users.username (unique)
	Email        string // users.email (unique, lower-cased)
	PasswordHash string // users.password_hash
	Role         Role   // users.role
	CreatedAt    string // users.created_at
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
