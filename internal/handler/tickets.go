package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/flash"
	"github.com/iliyamo/apprentice-helpdesk/internal/middleware"
	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
	"github.com/iliyamo/apprentice-helpdesk/internal/queue"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
)

// Notices shown by the ticket pages.
const (
	MsgTicketFieldsRequired = "Title and description are required!"
	MsgInvalidPriority      = "Priority must be High, Medium or Low."
	MsgInvalidStatus        = "Status must be open, in_progress or closed."
	MsgTicketSubmitted      = "Ticket submitted successfully!"
	MsgTicketUpdated        = "Ticket updated successfully!"
	MsgTicketNotFound       = "Ticket not found!"
	MsgDeleteNotFound       = "Ticket not found."
)

// TicketHandler serves the ticket pages.
type TicketHandler struct {
	base
	Tickets *repository.TicketRepo
	Events  events
}

type ticketListView struct {
	Tickets    []model.Ticket
	Filter     repository.TicketSearch
	Statuses   []model.Status
	Priorities []model.Priority
}

// searchFromQuery reads the listing filters and applies the caller's
// scope.  Owner filters only take effect for admins.
func searchFromQuery(c echo.Context, id policy.Identity) repository.TicketSearch {
	return repository.TicketSearch{
		AllOwners:     policy.ListScope(id) == policy.ScopeAll,
		OwnerID:       id.UserID,
		Status:        strings.TrimSpace(c.QueryParam("status")),
		Priority:      strings.TrimSpace(c.QueryParam("priority")),
		OwnerName:     strings.TrimSpace(c.QueryParam("apprentice_name")),
		OwnerIDFilter: strings.TrimSpace(c.QueryParam("apprentice_id")),
	}
}

func (h *TicketHandler) List(c echo.Context) error {
	id := middleware.IdentityFrom(c)
	if d := policy.ListTickets(id); !d.Allowed {
		return echo.ErrUnauthorized
	}
	search := searchFromQuery(c, id)
	q, warnings := search.BuildListing()

	ctx, cancel := dbCtx(c)
	defer cancel()
	tickets, err := h.Tickets.Search(ctx, q)
	if err != nil {
		return h.fail(c, err, "/")
	}

	var notices []flash.Message
	for _, w := range warnings {
		notices = append(notices, flash.Message{Kind: flash.Warning, Text: w})
	}
	return h.render(c, http.StatusOK, "tickets", "Tickets", ticketListView{
		Tickets:    tickets,
		Filter:     search,
		Statuses:   model.Statuses,
		Priorities: model.Priorities,
	}, notices...)
}

type ticketFormView struct {
	Ticket     *model.Ticket
	Statuses   []model.Status
	Priorities []model.Priority
}

func (h *TicketHandler) SubmitForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "submit_ticket", "Submit a ticket", ticketFormView{Priorities: model.Priorities})
}

func (h *TicketHandler) Submit(c echo.Context) error {
	id := middleware.IdentityFrom(c)
	if d := policy.SubmitTicket(id); !d.Allowed {
		return echo.ErrUnauthorized
	}
	t := model.Ticket{
		UserID:      id.UserID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Priority:    model.Priority(c.FormValue("priority")),
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if msg := validateTicket(t, false); msg != "" {
		return h.redirect(c, flash.Error, msg, "/submit_ticket")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Tickets.Create(ctx, &t); err != nil {
		return h.fail(c, err, "/submit_ticket")
	}
	t.OwnerName = id.Username
	h.Events.emit(c, queue.TicketCreated, t)
	return h.redirect(c, flash.Success, MsgTicketSubmitted, "/tickets")
}

// validateTicket returns the notice for the first invalid field, or "".
// Title and description are stored as entered; whitespace-only counts as
// empty.
func validateTicket(t model.Ticket, withStatus bool) string {
	switch {
	case strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Description) == "":
		return MsgTicketFieldsRequired
	case !t.Priority.Valid():
		return MsgInvalidPriority
	case withStatus && !t.Status.Valid():
		return MsgInvalidStatus
	}
	return ""
}

// load fetches the ticket named by :id and checks that the caller may
// see it.  A denied ticket is reported exactly like a missing one.
func (h *TicketHandler) load(c echo.Context, check func(policy.Identity, model.Ticket) policy.Decision) (*model.Ticket, error) {
	tid, err := pathID(c)
	if err != nil {
		return nil, err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	t, err := h.Tickets.GetByID(ctx, tid)
	if err != nil {
		return nil, err
	}
	if d := check(middleware.IdentityFrom(c), *t); !d.Allowed {
		return nil, repository.ErrTicketNotFound
	}
	return t, nil
}

// loadFailure turns a load error into the matching response.
func (h *TicketHandler) loadFailure(c echo.Context, err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return err
	case errors.Is(err, repository.ErrTicketNotFound):
		return h.redirect(c, flash.Error, MsgTicketNotFound, "/tickets")
	}
	return h.fail(c, err, "/tickets")
}

func (h *TicketHandler) View(c echo.Context) error {
	t, err := h.load(c, policy.ViewTicket)
	if err != nil {
		return h.loadFailure(c, err)
	}
	return h.render(c, http.StatusOK, "view_ticket", t.Title, ticketFormView{Ticket: t})
}

func (h *TicketHandler) EditForm(c echo.Context) error {
	t, err := h.load(c, policy.EditTicket)
	if err != nil {
		return h.loadFailure(c, err)
	}
	return h.render(c, http.StatusOK, "edit_ticket", "Edit ticket", ticketFormView{
		Ticket:     t,
		Statuses:   model.Statuses,
		Priorities: model.Priorities,
	})
}

func (h *TicketHandler) Edit(c echo.Context) error {
	t, err := h.load(c, policy.EditTicket)
	if err != nil {
		return h.loadFailure(c, err)
	}
	t.Title = c.FormValue("title")
	t.Description = c.FormValue("description")
	if p := c.FormValue("priority"); p != "" {
		t.Priority = model.Priority(p)
	}
	if s := c.FormValue("status"); s != "" {
		t.Status = model.Status(s)
	}
	if msg := validateTicket(*t, true); msg != "" {
		return h.redirect(c, flash.Error, msg, "/edit_ticket/"+strconv.FormatInt(t.ID, 10))
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Tickets.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return h.redirect(c, flash.Error, MsgTicketNotFound, "/tickets")
		}
		return h.fail(c, err, "/tickets")
	}
	h.Events.emit(c, queue.TicketUpdated, *t)
	return h.redirect(c, flash.Success, MsgTicketUpdated, "/tickets")
}

// Delete is mounted behind the admin guard.
func (h *TicketHandler) Delete(c echo.Context) error {
	if d := policy.DeleteTicket(middleware.IdentityFrom(c)); !d.Allowed {
		return echo.ErrForbidden
	}
	tid, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	t, err := h.Tickets.GetByID(ctx, tid)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return h.redirect(c, flash.Error, MsgDeleteNotFound, "/tickets")
	}
	if err != nil {
		return h.fail(c, err, "/tickets")
	}
	if err := h.Tickets.Delete(ctx, tid); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return h.redirect(c, flash.Error, MsgDeleteNotFound, "/tickets")
		}
		return h.fail(c, err, "/tickets")
	}
	h.Events.emit(c, queue.TicketDeleted, *t)
	return h.redirect(c, flash.Success, fmt.Sprintf("Ticket '%s' has been deleted.", t.Title), "/tickets")
}
