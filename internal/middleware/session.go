package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
	"github.com/iliyamo/apprentice-helpdesk/internal/utils"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "helpdesk_session"

// Session parses the session cookie into an Identity.  A missing,
// expired or tampered cookie leaves the request anonymous; it never
// fails the request.
func Session(codec *utils.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(SessionCookie)
			if err != nil || ck.Value == "" {
				return next(c)
			}
			claims, err := codec.ParseSessionToken(ck.Value)
			if err != nil {
				return next(c)
			}
			uid, _ := claims.UserID() // validated by ParseSessionToken
			SetIdentity(c, policy.Identity{
				UserID:   uid,
				Username: claims.Username,
				Role:     model.Role(claims.Role),
			})
			return next(c)
		}
	}
}

// SessionCookies writes and clears the session cookie.
type SessionCookies struct {
	Codec  *utils.TokenCodec
	TTL    time.Duration
	Secure bool
}

// Login issues a session for id and stores it on the response.
func (s SessionCookies) Login(c echo.Context, id policy.Identity) error {
	token, exp, err := s.Codec.NewSessionToken(id.UserID, id.Username, string(id.Role), s.TTL)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	SetIdentity(c, id)
	return nil
}

// Logout expires the session cookie.
func (s SessionCookies) Logout(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	SetIdentity(c, policy.Identity{})
}
