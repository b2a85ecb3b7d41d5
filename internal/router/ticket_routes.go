package router

import "github.com/labstack/echo/v4"

// registerTickets mounts the ticket pages.  Ownership is checked inside
// the handlers because it depends on the loaded ticket.
func (r routeSet) registerTickets(e *echo.Echo) {
	t := r.h.Tickets

	e.GET("/tickets", t.List, r.login)
	e.GET("/submit_ticket", t.SubmitForm, r.login)
	e.POST("/submit_ticket", t.Submit, r.login)
	e.GET("/view_ticket/:id", t.View, r.login)
	e.GET("/edit_ticket/:id", t.EditForm, r.login)
	e.POST("/edit_ticket/:id", t.Edit, r.login)
	e.POST("/delete_ticket/:id", t.Delete, r.adminUI)
}
