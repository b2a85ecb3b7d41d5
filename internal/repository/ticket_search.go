package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// Column names a filterable ticket listing column.  Only the constants
// below are accepted by the query builder.
type Column string

const (
	ColTicketOwner Column = "tickets.user_id"
	ColStatus      Column = "tickets.status"
	ColPriority    Column = "tickets.priority"
	ColOwnerName   Column = "users.username"
	ColOwnerID     Column = "users.id"
)

var filterable = map[Column]bool{
	ColTicketOwner: true,
	ColStatus:      true,
	ColPriority:    true,
	ColOwnerName:   true,
	ColOwnerID:     true,
}

// Op is a predicate operator.
type Op int

const (
	// OpEq is `column = ?`.
	OpEq Op = iota
	// OpContainsFold is a case-insensitive substring match:
	// `LOWER(column) LIKE ?` with the value wrapped in %...%.
	OpContainsFold
)

// Predicate is a single typed filter.  Value is always bound as a
// parameter, never written into the SQL text.
type Predicate struct {
	Column Column
	Op     Op
	Value  any
}

func (p Predicate) render() (string, any, error) {
	if !filterable[p.Column] {
		return "", nil, fmt.Errorf("column %q is not filterable", p.Column)
	}
	switch p.Op {
	case OpEq:
		return string(p.Column) + " = ?", p.Value, nil
	case OpContainsFold:
		s, ok := p.Value.(string)
		if !ok {
			return "", nil, fmt.Errorf("contains filter on %s needs a string", p.Column)
		}
		return "LOWER(" + string(p.Column) + ") LIKE ?", "%" + escapeLike(strings.ToLower(s)) + "%", nil
	}
	return "", nil, fmt.Errorf("unknown operator %d", p.Op)
}

// likeEscape is used instead of backslash, which MySQL treats as a string
// literal escape.
const likeEscape = "!"

// escapeLike makes % and _ in user input match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

// Query accumulates predicates and paging for a ticket listing.
type Query struct {
	Predicates []Predicate
	Limit      int // zero means unbounded
	Offset     int
}

// Where appends a predicate and returns q for chaining.
func (q *Query) Where(col Column, op Op, v any) *Query {
	q.Predicates = append(q.Predicates, Predicate{Column: col, Op: op, Value: v})
	return q
}

// where renders the WHERE condition (without the keyword) and its bound
// arguments.  An empty query renders "1=1".
func (q Query) where() (string, []any, error) {
	if len(q.Predicates) == 0 {
		return "1=1", nil, nil
	}
	parts := make([]string, 0, len(q.Predicates))
	args := make([]any, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		sql, arg, err := p.render()
		if err != nil {
			return "", nil, err
		}
		if p.Op == OpContainsFold {
			sql += " ESCAPE '" + likeEscape + "'"
		}
		parts = append(parts, sql)
		args = append(args, arg)
	}
	return strings.Join(parts, " AND "), args, nil
}

// TicketSearch describes a listing request after the authorization policy
// has decided its scope.
type TicketSearch struct {
	// AllOwners is the admin scope.  When false only OwnerID's tickets are
	// returned and the owner filters below are ignored.
	AllOwners bool
	OwnerID   int64

	Status   string
	Priority string

	// Admin-only filters.
	OwnerName     string // case-insensitive partial username match
	OwnerIDFilter string // exact owner id, must be numeric

	Page     int // 1-based; zero disables paging
	PageSize int
}

// WarnOwnerIDNotNumeric is reported when OwnerIDFilter is not a number.
const WarnOwnerIDNotNumeric = "Apprentice ID must be numeric."

// BuildListing turns the search into a Query.  Non-fatal input problems
// are returned as warnings; the offending filter is skipped.
func (s TicketSearch) BuildListing() (Query, []string) {
	var (
		q        Query
		warnings []string
	)
	if !s.AllOwners {
		q.Where(ColTicketOwner, OpEq, s.OwnerID)
	}
	if v := strings.TrimSpace(s.Status); v != "" {
		q.Where(ColStatus, OpEq, v)
	}
	if v := strings.TrimSpace(s.Priority); v != "" {
		q.Where(ColPriority, OpEq, v)
	}
	if s.AllOwners {
		if v := strings.TrimSpace(s.OwnerName); v != "" {
			q.Where(ColOwnerName, OpContainsFold, v)
		}
		if v := strings.TrimSpace(s.OwnerIDFilter); v != "" {
			if id, ok := parseDigits(v); ok {
				q.Where(ColOwnerID, OpEq, id)
			} else {
				warnings = append(warnings, WarnOwnerIDNotNumeric)
			}
		}
	}
	if s.Page > 0 && s.PageSize > 0 {
		q.Limit = s.PageSize
		q.Offset = (s.Page - 1) * s.PageSize
	}
	return q, warnings
}

// parseDigits accepts only ASCII digits, so "+3" and "-1" are rejected.
func parseDigits(s string) (int64, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
