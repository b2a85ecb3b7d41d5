package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/middleware"
	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// APIHandler serves the JSON ticket listing.
type APIHandler struct {
	base
	Tickets *repository.TicketRepo
}

type ticketPage struct {
	Data     []model.Ticket `json:"data"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Warnings []string       `json:"warnings,omitempty"`
}

// List returns one page of the tickets visible to the caller, with the
// same filters as the HTML listing.
func (h *APIHandler) List(c echo.Context) error {
	id := middleware.IdentityFrom(c)
	if d := policy.ListTickets(id); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	search := searchFromQuery(c, id)
	search.Page, search.PageSize = pageParams(c)
	q, warnings := search.BuildListing()

	ctx, cancel := dbCtx(c)
	defer cancel()
	total, err := h.Tickets.Count(ctx, q)
	if err != nil {
		h.Logger.Error("api tickets: count failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": MsgSomethingWentWrong})
	}
	tickets, err := h.Tickets.Search(ctx, q)
	if err != nil {
		h.Logger.Error("api tickets: search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": MsgSomethingWentWrong})
	}
	return c.JSON(http.StatusOK, ticketPage{
		Data:     tickets,
		Total:    total,
		Page:     search.Page,
		PageSize: search.PageSize,
		Warnings: warnings,
	})
}

// pageParams clamps page to >= 1 and page_size to 1..100, defaulting to
// 20 when absent or malformed.
func pageParams(c echo.Context) (page, size int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(c.QueryParam("page_size"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
