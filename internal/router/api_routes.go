package router

import "github.com/labstack/echo/v4"

// registerAPI mounts the JSON endpoints.  They answer 401 instead of
// redirecting.
func (r routeSet) registerAPI(e *echo.Echo) {
	e.GET("/api/tickets", r.h.API.List, r.loginJSON, r.limiter)
}
