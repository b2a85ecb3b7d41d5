package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/flash"
	"github.com/iliyamo/apprentice-helpdesk/internal/middleware"
	"github.com/iliyamo/apprentice-helpdesk/internal/service"
	"github.com/iliyamo/apprentice-helpdesk/internal/utils"
)

// Notices shown by the account pages.
const (
	MsgLoginOK            = "Login successful!"
	MsgInvalidCredentials = "Invalid credentials. Please try again."
	MsgRegistered         = "Registration successful! You are now logged in."
	MsgAlreadyRegistered  = "Email or username is already registered. Please log in."
	MsgLoggedOut          = "You have been logged out."
	MsgResetSent          = "If an account with that email exists, a reset link has been sent."
	MsgResetExpired       = "Reset link has expired. Please request a new one."
	MsgResetInvalid       = "Invalid reset link."
	MsgResetDone          = "Your password has been reset. You can now log in."
)

// AuthHandler serves login, registration, logout and password reset.
type AuthHandler struct {
	base
	Auth     *service.AuthService
	Reset    *service.ResetService
	Sessions middleware.SessionCookies
	BaseURL  string // public origin for reset links; request host when empty
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "login", "Log in", nil)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	id, err := h.Auth.Login(ctx, c.FormValue("username"), c.FormValue("password"))
	if errors.Is(err, service.ErrInvalidCredentials) {
		return h.render(c, http.StatusOK, "login", "Log in", nil,
			flash.Message{Kind: flash.Error, Text: MsgInvalidCredentials})
	}
	if err != nil {
		return h.fail(c, err, "/login")
	}
	if err := h.Sessions.Login(c, id); err != nil {
		return h.fail(c, err, "/login")
	}
	return h.redirect(c, flash.Success, MsgLoginOK, "/")
}

func (h *AuthHandler) RegisterForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "register", "Register", nil)
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	id, err := h.Auth.Register(ctx, c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
	var ve *service.ValidationError
	switch {
	case errors.Is(err, service.ErrAlreadyRegistered):
		return h.redirect(c, flash.Error, MsgAlreadyRegistered, "/register")
	case errors.As(err, &ve):
		return h.redirect(c, flash.Error, ve.Msg, "/register")
	case err != nil:
		return h.fail(c, err, "/register")
	}
	if err := h.Sessions.Login(c, id); err != nil {
		return h.fail(c, err, "/login")
	}
	return h.redirect(c, flash.Success, MsgRegistered, "/")
}

// Logout clears the session whether or not one exists.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.Sessions.Logout(c)
	return h.redirect(c, flash.Info, MsgLoggedOut, "/login")
}

func (h *AuthHandler) ForgotForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "forgot_password", "Forgot password", nil)
}

func (h *AuthHandler) Forgot(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	err := h.Reset.Request(ctx, c.FormValue("email"), func(token string) string {
		return h.resetLink(c, token)
	})
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return h.redirect(c, flash.Error, ve.Msg, "/forgot-password")
	case err != nil:
		return h.fail(c, err, "/forgot-password")
	}
	return h.redirect(c, flash.Success, MsgResetSent, "/login")
}

func (h *AuthHandler) resetLink(c echo.Context, token string) string {
	origin := h.BaseURL
	if origin == "" {
		origin = c.Scheme() + "://" + c.Request().Host
	}
	return origin + "/reset-password/" + url.PathEscape(token)
}

func (h *AuthHandler) ResetForm(c echo.Context) error {
	token := c.Param("token")
	if _, err := h.Reset.Verify(token); err != nil {
		return h.tokenFailure(c, err)
	}
	return h.render(c, http.StatusOK, "reset_password", "Reset password", struct{ Token string }{token})
}

func (h *AuthHandler) ResetSubmit(c echo.Context) error {
	token := c.Param("token")
	confirm := c.FormValue("confirm_password")
	if confirm == "" {
		confirm = c.FormValue("confirmPassword")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	err := h.Reset.Reset(ctx, token, c.FormValue("password"), confirm)
	var ve *service.ValidationError
	switch {
	case err == nil:
		return h.redirect(c, flash.Success, MsgResetDone, "/login")
	case errors.As(err, &ve):
		return h.redirect(c, flash.Error, ve.Msg, "/reset-password/"+url.PathEscape(token))
	case errors.Is(err, utils.ErrTokenExpired), errors.Is(err, utils.ErrTokenInvalid):
		return h.tokenFailure(c, err)
	}
	return h.fail(c, err, "/forgot-password")
}

func (h *AuthHandler) tokenFailure(c echo.Context, err error) error {
	if errors.Is(err, utils.ErrTokenExpired) {
		return h.redirect(c, flash.Error, MsgResetExpired, "/forgot-password")
	}
	return h.redirect(c, flash.Error, MsgResetInvalid, "/forgot-password")
}
