// Package flash stores one-shot notices in a signed cookie so they survive
// the redirect that follows most form posts.
package flash

import (
	"crypto/sha256"
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

// CookieName is the flash cookie.
const CookieName = "helpdesk_flash"

// Kind is the notice category; templates map it to a CSS class.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

// Message is one notice.
type Message struct {
	Kind Kind
	Text string
}

func init() {
	gob.Register(Message{})
}

// Store reads and writes flash messages.
type Store struct {
	cookies *sessions.CookieStore
}

// NewStore derives the cookie signing key from secret.  secure sets the
// Secure attribute and should be on behind HTTPS.
func NewStore(secret string, secure bool) *Store {
	key := sha256.Sum256([]byte("flash:" + secret))
	cs := sessions.NewCookieStore(key[:])
	cs.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{cookies: cs}
}

// Add queues a notice for the next rendered page.
func (s *Store) Add(c echo.Context, kind Kind, text string) error {
	sess, _ := s.cookies.Get(c.Request(), CookieName) // a bad cookie yields a fresh session
	sess.AddFlash(Message{Kind: kind, Text: text})
	return sess.Save(c.Request(), c.Response())
}

// Pop returns and clears the pending notices.
func (s *Store) Pop(c echo.Context) []Message {
	sess, err := s.cookies.Get(c.Request(), CookieName)
	if err != nil && sess == nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Message, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(Message); ok {
			out = append(out, m)
		}
	}
	_ = sess.Save(c.Request(), c.Response())
	return out
}
