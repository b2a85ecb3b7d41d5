package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/flash"
	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
)

// Notices set by the guards.
const (
	MsgLoginRequired      = "You need to log in to view this page."
	MsgLoginToManageUsers = "You need to log in to manage users."
	MsgPermissionDenied   = "You do not have permission to view this page."
	MsgSomethingWentWrong = "Something went wrong. Please try again."
)

const (
	loginPath = "/login"
	homePath  = "/"
)

// RequireLogin redirects anonymous callers to the login page with a
// notice.  The identity is re-read from users first, so a deleted account
// is logged out and a role change applies on the next request.
func RequireLogin(users RoleSource, fl *flash.Store, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := refresh(c, users, logger)
			if err != nil {
				return err
			}
			if !id.Authenticated() {
				_ = fl.Add(c, flash.Error, MsgLoginRequired)
				return c.Redirect(http.StatusFound, loginPath)
			}
			return next(c)
		}
	}
}

// RequireLoginJSON answers anonymous API callers with 401.
func RequireLoginJSON(users RoleSource, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := refresh(c, users, logger)
			if err != nil {
				return err
			}
			if !id.Authenticated() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			return next(c)
		}
	}
}

// RoleSource reads the current user record.  *repository.UserRepo
// satisfies it.
type RoleSource interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
}

// DenyMode picks how RequireAdmin responds to a non-admin.
type DenyMode int

const (
	// RedirectHome flashes a permission notice and sends the caller home.
	RedirectHome DenyMode = iota
	// AbortForbidden answers 403, after sending anonymous callers to
	// the login page.
	AbortForbidden
)

// RequireAdmin admits only admins, judged on the role stored in users
// rather than the one in the cookie.
func RequireAdmin(users RoleSource, fl *flash.Store, mode DenyMode, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := refresh(c, users, logger)
			if err != nil {
				return err
			}

			d := policy.ManageUsers(id)
			if d.Allowed {
				return next(c)
			}
			return deny(c, fl, mode, d)
		}
	}
}

// refresh replaces the cookie identity with the stored user record.
// Unknown users become anonymous.
func refresh(c echo.Context, users RoleSource, logger *slog.Logger) (policy.Identity, error) {
	id := IdentityFrom(c)
	if !id.Authenticated() {
		return id, nil
	}
	u, err := users.GetByID(c.Request().Context(), id.UserID)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		id = policy.Identity{}
	case err != nil:
		logger.Error("identity refresh failed", "user_id", id.UserID, "err", err)
		return id, echo.NewHTTPError(http.StatusInternalServerError, MsgSomethingWentWrong).SetInternal(err)
	default:
		id = policy.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
	}
	SetIdentity(c, id)
	return id, nil
}

func deny(c echo.Context, fl *flash.Store, mode DenyMode, d policy.Decision) error {
	switch mode {
	case AbortForbidden:
		if d.Reason == policy.ReasonUnauthenticated {
			_ = fl.Add(c, flash.Error, MsgLoginToManageUsers)
			return c.Redirect(http.StatusFound, loginPath)
		}
		return echo.ErrForbidden
	default:
		_ = fl.Add(c, flash.Error, MsgPermissionDenied)
		return c.Redirect(http.StatusFound, homePath)
	}
}
