package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/flash"
	"github.com/iliyamo/apprentice-helpdesk/internal/middleware"
	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
)

// Notices shown by the user management pages.
const (
	MsgUserUpdated        = "User updated successfully!"
	MsgUserDeleted        = "User deleted successfully!"
	MsgUserNotFound       = "User not found."
	MsgUserConflict       = "Username or email already in use."
	MsgCannotDeleteSelf   = "You cannot delete your own account."
	MsgUserFieldsRequired = "Username and email are required."
	MsgInvalidRole        = "Role must be apprentice or admin."
)

// AdminHandler serves user management.  Every route is mounted behind
// middleware.RequireAdmin.
type AdminHandler struct {
	base
	Users *repository.UserRepo
}

type userListView struct {
	Users []model.User
	Role  string
	Roles []model.Role
}

var roles = []model.Role{model.RoleApprentice, model.RoleAdmin}

func (h *AdminHandler) allowed(c echo.Context) bool {
	return policy.ManageUsers(middleware.IdentityFrom(c)).Allowed
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	if !h.allowed(c) {
		return echo.ErrForbidden
	}
	role := strings.TrimSpace(c.QueryParam("role"))

	ctx, cancel := dbCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx, model.Role(role))
	if err != nil {
		return h.fail(c, err, "/")
	}
	return h.render(c, http.StatusOK, "admin_users", "Users", userListView{Users: users, Role: role, Roles: roles})
}

type userFormView struct {
	User  model.User
	Roles []model.Role
}

func (h *AdminHandler) EditUserForm(c echo.Context) error {
	if !h.allowed(c) {
		return echo.ErrForbidden
	}
	uid, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) {
		return h.redirect(c, flash.Error, MsgUserNotFound, "/admin_users")
	}
	if err != nil {
		return h.fail(c, err, "/admin_users")
	}
	return h.render(c, http.StatusOK, "edit_user", "Edit user", userFormView{User: u, Roles: roles})
}

func (h *AdminHandler) EditUser(c echo.Context) error {
	if !h.allowed(c) {
		return echo.ErrForbidden
	}
	uid, err := pathID(c)
	if err != nil {
		return err
	}
	back := "/admin/users/edit/" + strconv.FormatInt(uid, 10)

	username := strings.TrimSpace(c.FormValue("username"))
	email := strings.TrimSpace(c.FormValue("email"))
	role := model.Role(c.FormValue("role"))
	switch {
	case username == "" || email == "":
		return h.redirect(c, flash.Error, MsgUserFieldsRequired, back)
	case !role.Valid():
		return h.redirect(c, flash.Error, MsgInvalidRole, back)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	err = h.Users.Update(ctx, uid, username, email, role)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return h.redirect(c, flash.Error, MsgUserNotFound, "/admin_users")
	case errors.Is(err, repository.ErrUserExists):
		return h.redirect(c, flash.Error, MsgUserConflict, back)
	case err != nil:
		return h.fail(c, err, "/admin_users")
	}
	return h.redirect(c, flash.Success, MsgUserUpdated, "/admin_users")
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	if !h.allowed(c) {
		return echo.ErrForbidden
	}
	uid, err := pathID(c)
	if err != nil {
		return err
	}
	if uid == middleware.IdentityFrom(c).UserID {
		return h.redirect(c, flash.Error, MsgCannotDeleteSelf, "/admin_users")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	err = h.Users.Delete(ctx, uid)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return h.redirect(c, flash.Error, MsgUserNotFound, "/admin_users")
	case err != nil:
		return h.fail(c, err, "/admin_users")
	}
	return h.redirect(c, flash.Success, MsgUserDeleted, "/admin_users")
}
