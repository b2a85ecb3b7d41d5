package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/middleware"
	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
)

// PageHandler serves the home and FAQ pages.
type PageHandler struct {
	base
	Tickets *repository.TicketRepo
}

type homeView struct {
	Year            int
	OpenCount       int64
	InProgressCount int64
}

// Home renders the admin dashboard or the apprentice landing page.
func (h *PageHandler) Home(c echo.Context) error {
	id := middleware.IdentityFrom(c)
	scope := policy.ListScope(id)

	ctx, cancel := dbCtx(c)
	defer cancel()
	count := func(status string) (int64, error) {
		q, _ := repository.TicketSearch{
			AllOwners: scope == policy.ScopeAll,
			OwnerID:   id.UserID,
			Status:    status,
		}.BuildListing()
		return h.Tickets.Count(ctx, q)
	}

	view := homeView{Year: time.Now().Year()}
	var err error
	if view.OpenCount, err = count("open"); err != nil {
		return h.fail(c, err, "/tickets")
	}
	if scope == policy.ScopeAll {
		if view.InProgressCount, err = count("in_progress"); err != nil {
			return h.fail(c, err, "/tickets")
		}
		return h.render(c, http.StatusOK, "admin_home", "Admin", view)
	}
	return h.render(c, http.StatusOK, "index", "Home", view)
}

func (h *PageHandler) FAQ(c echo.Context) error {
	return h.render(c, http.StatusOK, "faq", "FAQ", nil)
}
