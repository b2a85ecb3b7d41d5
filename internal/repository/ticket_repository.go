package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/apprentice-helpdesk/internal/model"
)

const ticketSelect = `SELECT
		tickets.id,
		tickets.user_id,
		COALESCE(users.username, ''),
		tickets.title,
		tickets.description,
		tickets.priority,
		tickets.status,
		tickets.created_at
	FROM tickets
	LEFT JOIN users ON users.id = tickets.user_id`

// TicketRepo is the ticket store backed by the `tickets` table.
type TicketRepo struct{ db *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Create inserts t and fills its ID.  New tickets are always open.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	t.Status = model.StatusOpen
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tickets (user_id, title, description, priority, status) VALUES (?, ?, ?, ?, ?)",
		t.UserID, t.Title, t.Description, string(t.Priority), string(t.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// GetByID fetches a ticket with its owner's username.
func (r *TicketRepo) GetByID(ctx context.Context, id int64) (*model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, ticketSelect+" WHERE tickets.id = ?", id)
	if err != nil {
		return nil, err
	}
	out, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrTicketNotFound
	}
	return &out[0], nil
}

// Update overwrites the editable fields of t.
func (r *TicketRepo) Update(ctx context.Context, t *model.Ticket) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tickets SET title = ?, description = ?, priority = ?, status = ? WHERE id = ?",
		t.Title, t.Description, string(t.Priority), string(t.Status), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// Delete removes a ticket by id.
func (r *TicketRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tickets WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// Search runs a listing query, newest first.
func (r *TicketRepo) Search(ctx context.Context, q Query) ([]model.Ticket, error) {
	cond, args, err := q.where()
	if err != nil {
		return nil, err
	}
	stmt := ticketSelect + " WHERE " + cond + " ORDER BY tickets.id DESC"
	if q.Limit > 0 {
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

// Count returns how many tickets match q, ignoring paging.
func (r *TicketRepo) Count(ctx context.Context, q Query) (int64, error) {
	cond, args, err := q.where()
	if err != nil {
		return 0, err
	}
	var total int64
	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets LEFT JOIN users ON users.id = tickets.user_id WHERE "+cond,
		args...).Scan(&total)
	return total, err
}

func scanTickets(rows *sql.Rows) ([]model.Ticket, error) {
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.OwnerName,
			&t.Title,
			&t.Description,
			&t.Priority,
			&t.Status,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsNotFound reports whether err is one of the repository not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTicketNotFound) || errors.Is(err, ErrUserNotFound)
}
