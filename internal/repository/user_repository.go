package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/utils"
)

const userColumns = "id, username, email, password_hash, role, created_at"

// UserRepo is the credential store backed by the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes password and inserts the user, returning its ID.  Email is
// stored lower-cased.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, role model.Role, cost int) (int64, error) {
	email = normalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)",
		username, email, hash, string(role))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUserExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

// Taken reports whether either the username or the email is already
// registered.  The email comparison is case-insensitive.
func (r *UserRepo) Taken(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ? OR LOWER(email) = ?",
		username, normalizeEmail(email)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", username)
}

// GetByEmail fetches a user by case-insensitive email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE LOWER(email) = ? LIMIT 1", normalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// List returns all users ordered by id, optionally restricted to one role.
func (r *UserRepo) List(ctx context.Context, role model.Role) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	var args []any
	if role != "" {
		q += " WHERE role = ?"
		args = append(args, string(role))
	}
	q += " ORDER BY id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update overwrites username, email and role.  It returns ErrUserNotFound
// when no row matches and ErrUserExists on a unique violation.
func (r *UserRepo) Update(ctx context.Context, id int64, username, email string, role model.Role) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username = ?, email = ?, role = ? WHERE id = ?",
		username, normalizeEmail(email), string(role), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPasswordByEmail hashes password and stores it for the user whose email
// matches case-insensitively.
func (r *UserRepo) SetPasswordByEmail(ctx context.Context, email, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE LOWER(email) = ?",
		hash, normalizeEmail(email))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes the user.  Their tickets go with them (ON DELETE CASCADE).
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
