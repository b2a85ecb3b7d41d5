// Package handler holds the HTTP handlers of the helpdesk and the
// templates they render.
package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/flash"
	"github.com/iliyamo/apprentice-helpdesk/internal/middleware"
	"github.com/iliyamo/apprentice-helpdesk/internal/queue"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
	"github.com/iliyamo/apprentice-helpdesk/internal/service"
)

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Users     *repository.UserRepo
	Tickets   *repository.TicketRepo
	Auth      *service.AuthService
	Reset     *service.ResetService
	Sessions  middleware.SessionCookies
	Flash     *flash.Store
	Publisher queue.Publisher
	BaseURL   string
	Logger    *slog.Logger
}

// Handlers groups the handler sets the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Tickets  *TicketHandler
	Admin    *AdminHandler
	API      *APIHandler
	Pages    *PageHandler
	Renderer echo.Renderer
	Errors   echo.HTTPErrorHandler
}

// New parses the templates and wires the handler sets.
func New(d Deps) (*Handlers, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	b := base{Flash: d.Flash, Logger: d.Logger}
	pub := d.Publisher
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	return &Handlers{
		Auth: &AuthHandler{
			base:     b,
			Auth:     d.Auth,
			Reset:    d.Reset,
			Sessions: d.Sessions,
			BaseURL:  d.BaseURL,
		},
		Tickets: &TicketHandler{
			base:    b,
			Tickets: d.Tickets,
			Events:  events{Publisher: pub, Logger: d.Logger},
		},
		Admin:    &AdminHandler{base: b, Users: d.Users},
		API:      &APIHandler{base: b, Tickets: d.Tickets},
		Pages:    &PageHandler{base: b, Tickets: d.Tickets},
		Renderer: r,
		Errors:   ErrorHandler(d.Logger, b),
	}, nil
}
