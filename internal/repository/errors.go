// Package repository defines error types that are reused across the user
// and ticket repositories so that handlers can distinguish failure cases
// with errors.Is.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrTicketNotFound is returned when no ticket matches the id.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrUserExists is returned when a username or email is already taken.
	ErrUserExists = errors.New("username or email already exists")
)

// isUniqueViolation recognises duplicate-key errors from both supported
// drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
