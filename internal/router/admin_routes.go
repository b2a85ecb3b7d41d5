package router

import "github.com/labstack/echo/v4"

// registerAdmin mounts user management.  Anonymous callers are sent to
// the login page; logged-in non-admins get 403.
func (r routeSet) registerAdmin(e *echo.Echo) {
	a := r.h.Admin

	e.GET("/admin_users", a.ListUsers, r.adminForbid)
	g := e.Group("/admin/users", r.adminForbid)
	g.GET("/edit/:id", a.EditUserForm)
	g.POST("/edit/:id", a.EditUser)
	g.POST("/delete/:id", a.DeleteUser)
}
