package router

import "github.com/labstack/echo/v4"

// registerAccount mounts the home, FAQ and account pages.
func (r routeSet) registerAccount(e *echo.Echo) {
	a := r.h.Auth
	p := r.h.Pages

	e.GET("/", p.Home, r.login)
	e.GET("/faq", p.FAQ)

	e.GET("/login", a.LoginForm)
	e.POST("/login", a.Login)
	e.GET("/register", a.RegisterForm)
	e.POST("/register", a.Register)
	e.GET("/logout", a.Logout)

	e.GET("/forgot-password", a.ForgotForm)
	e.POST("/forgot-password", a.Forgot, r.limiter)
	e.GET("/reset-password/:token", a.ResetForm)
	e.POST("/reset-password/:token", a.ResetSubmit)
}
