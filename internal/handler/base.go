package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/apprentice-helpdesk/internal/flash"
	"github.com/iliyamo/apprentice-helpdesk/internal/middleware"
	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/queue"
)

// dbTimeout bounds each request's database work.
const dbTimeout = 5 * time.Second

// MsgSomethingWentWrong is shown for unexpected failures.
const MsgSomethingWentWrong = middleware.MsgSomethingWentWrong

// base carries what every handler group needs.
type base struct {
	Flash  *flash.Store
	Logger *slog.Logger
}

// render pops pending notices, appends extra ones raised during this
// request and renders the page.
func (b base) render(c echo.Context, status int, name, title string, data any, extra ...flash.Message) error {
	csrf, _ := c.Get(echomw.DefaultCSRFConfig.ContextKey).(string)
	page := Page{
		Title:    title,
		Identity: middleware.IdentityFrom(c),
		Flashes:  append(b.Flash.Pop(c), extra...),
		CSRF:     csrf,
		Data:     data,
	}
	return c.Render(status, name, page)
}

// redirect queues a notice and sends a 302 to path.
func (b base) redirect(c echo.Context, kind flash.Kind, msg, path string) error {
	if err := b.Flash.Add(c, kind, msg); err != nil {
		b.Logger.Warn("flash add failed", "err", err)
	}
	return c.Redirect(http.StatusFound, path)
}

// fail logs an unexpected error and redirects with the generic notice.
func (b base) fail(c echo.Context, err error, path string) error {
	b.Logger.Error("request failed",
		"method", c.Request().Method,
		"uri", c.Request().RequestURI,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"err", err)
	return b.redirect(c, flash.Error, MsgSomethingWentWrong, path)
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pathID parses the :id route parameter.  Anything that is not a
// positive integer is a 404.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, echo.ErrNotFound
	}
	return id, nil
}

// events publishes ticket events off the request path.
type events struct {
	Publisher queue.Publisher
	Logger    *slog.Logger
}

const publishTimeout = 10 * time.Second

func (e events) emit(c echo.Context, action queue.Action, t model.Ticket) {
	if e.Publisher == nil {
		return
	}
	actor := middleware.IdentityFrom(c)
	ev := queue.TicketEvent{
		Action:    action,
		TicketID:  t.ID,
		OwnerID:   t.UserID,
		Title:     t.Title,
		Priority:  string(t.Priority),
		Status:    string(t.Status),
		ActorID:   actor.UserID,
		ActorName: actor.Username,
	}
	ev.Stamp(time.Now())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.Publisher.Publish(ctx, ev); err != nil {
			e.Logger.Warn("ticket event not published", "action", ev.Action, "ticket_id", ev.TicketID, "err", err)
		}
	}()
}
