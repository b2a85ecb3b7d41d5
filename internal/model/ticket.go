package model

// Priority enumerates ticket urgency.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists the priorities in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Status enumerates the ticket lifecycle.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

// Statuses lists the statuses in display order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusClosed}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Ticket mirrors the `tickets` table.  OwnerName is filled by queries that
// join the owning user.
type Ticket struct {
	ID          int64    `json:"id"`
	UserID      int64    `json:"user_id"`
	OwnerName   string   `json:"owner,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	CreatedAt   string   `json:"created_at"`
}
