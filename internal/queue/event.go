// Package queue carries ticket lifecycle events over RabbitMQ.  Handlers
// publish them; the audit consumer appends them to a log file.
package queue

import "time"

// Action names what happened to a ticket.
type Action string

const (
	TicketCreated Action = "created"
	TicketUpdated Action = "updated"
	TicketDeleted Action = "deleted"
)

// TicketEvent is the message body published for every ticket change.  It
// holds enough to write the audit line without querying the database.
type TicketEvent struct {
	Action     Action `json:"action"`
	TicketID   int64  `json:"ticket_id"`
	OwnerID    int64  `json:"owner_id"`
	Title      string `json:"title"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	ActorID    int64  `json:"actor_id"`
	ActorName  string `json:"actor"`
	OccurredAt string `json:"occurred_at"`
}

// Stamp sets OccurredAt to now in RFC 3339 UTC when it is empty.
func (e *TicketEvent) Stamp(now time.Time) {
	if e.OccurredAt == "" {
		e.OccurredAt = now.UTC().Format(time.RFC3339)
	}
}
