package middleware

// identity.go keeps the request-scoped caller in the echo context.  The
// Session middleware stores it once per request; everything downstream
// reads it with IdentityFrom.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
)

const identityKey = "helpdesk.identity"

// IdentityFrom returns the caller for this request, or the anonymous
// identity when nobody is logged in.
func IdentityFrom(c echo.Context) policy.Identity {
	if id, ok := c.Get(identityKey).(policy.Identity); ok {
		return id
	}
	return policy.Identity{}
}

// SetIdentity replaces the caller for the rest of the request.
func SetIdentity(c echo.Context, id policy.Identity) {
	c.Set(identityKey, id)
}

// userID returns the caller's id as a string, or "anon".
func userID(c echo.Context) string {
	id := IdentityFrom(c)
	if !id.Authenticated() {
		return "anon"
	}
	return strconv.FormatInt(id.UserID, 10)
}
