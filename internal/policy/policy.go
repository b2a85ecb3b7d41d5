// Package policy decides who may do what with tickets and user accounts.
// Every function is pure: it looks only at the identity and the resource
// handed to it.
package policy

import "github.com/iliyamo/apprentice-helpdesk/internal/model"

// Identity is the authenticated caller.  The zero value is anonymous.
type Identity struct {
	UserID   int64
	Username string
	Role     model.Role
}

// Authenticated reports whether the identity belongs to a logged-in user.
func (id Identity) Authenticated() bool { return id.UserID > 0 }

// IsAdmin reports whether the identity holds the admin role.
func (id Identity) IsAdmin() bool { return id.Authenticated() && id.Role == model.RoleAdmin }

// Reason explains a denied Decision.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonForbidden
	ReasonNotOwner
)

func (r Reason) String() string {
	switch r {
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonForbidden:
		return "forbidden"
	case ReasonNotOwner:
		return "not owner"
	}
	return "none"
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(r Reason) Decision { return Decision{Reason: r} }

// Scope says which tickets a listing may include.
type Scope int

const (
	ScopeOwn Scope = iota
	ScopeAll
)

// ListTickets allows any logged-in user to list tickets.
func ListTickets(id Identity) Decision {
	if !id.Authenticated() {
		return deny(ReasonUnauthenticated)
	}
	return allow
}

// ListScope returns ScopeAll for admins and ScopeOwn for everyone else.
func ListScope(id Identity) Scope {
	if id.IsAdmin() {
		return ScopeAll
	}
	return ScopeOwn
}

// SubmitTicket allows any logged-in user to open a ticket for themselves.
func SubmitTicket(id Identity) Decision {
	if !id.Authenticated() {
		return deny(ReasonUnauthenticated)
	}
	return allow
}

// ViewTicket lets admins see any ticket and everyone else only their own.
func ViewTicket(id Identity, t model.Ticket) Decision {
	return ownerOrAdmin(id, t)
}

// EditTicket follows the same rule as ViewTicket.
func EditTicket(id Identity, t model.Ticket) Decision {
	return ownerOrAdmin(id, t)
}

// DeleteTicket is admin only.
func DeleteTicket(id Identity) Decision {
	return adminOnly(id)
}

// ManageUsers is admin only.  Callers should pass an identity whose role
// was read from the user store, not from the session cookie.
func ManageUsers(id Identity) Decision {
	return adminOnly(id)
}

func ownerOrAdmin(id Identity, t model.Ticket) Decision {
	switch {
	case !id.Authenticated():
		return deny(ReasonUnauthenticated)
	case id.IsAdmin(), t.UserID == id.UserID:
		return allow
	}
	return deny(ReasonNotOwner)
}

func adminOnly(id Identity) Decision {
	switch {
	case !id.Authenticated():
		return deny(ReasonUnauthenticated)
	case !id.IsAdmin():
		return deny(ReasonForbidden)
	}
	return allow
}
