package router

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/apprentice-helpdesk/internal/config"
	"github.com/iliyamo/apprentice-helpdesk/internal/database"
	"github.com/iliyamo/apprentice-helpdesk/internal/logging"
	"github.com/iliyamo/apprentice-helpdesk/internal/mail"
	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/queue"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last() (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail.Message{}, false
	}
	return m.sent[len(m.sent)-1], true
}

type chanPublisher chan queue.TicketEvent

func (p chanPublisher) Publish(_ context.Context, ev queue.TicketEvent) error {
	p <- ev
	return nil
}

type testApp struct {
	srv     *httptest.Server
	users   *repository.UserRepo
	tickets *repository.TicketRepo
	mailer  *captureMailer
	events  chanPublisher
}

func newTestApp(t *testing.T, csrf bool) *testApp {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "e2e.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	app := &testApp{
		users:   repository.NewUserRepo(db),
		tickets: repository.NewTicketRepo(db),
		mailer:  &captureMailer{},
		events:  make(chanPublisher, 16),
	}
	e, err := New(App{
		Config: config.Config{
			Env:        "test",
			Secret:     "test-secret",
			SessionTTL: time.Hour,
			BcryptCost: bcrypt.MinCost,
			CSRF:       csrf,
		},
		DB:        db,
		Publisher: app.events,
		Mailer:    app.mailer,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	app.srv = httptest.NewServer(e)
	t.Cleanup(app.srv.Close)
	return app
}

func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func noFollow(c *http.Client) *http.Client {
	return &http.Client{Jar: c.Jar, CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

type page struct {
	status int
	path   string
	body   string
}

func read(t *testing.T, res *http.Response, err error) page {
	t.Helper()
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return page{status: res.StatusCode, path: res.Request.URL.Path, body: string(b)}
}

func (a *testApp) get(t *testing.T, c *http.Client, path string) page {
	res, err := c.Get(a.srv.URL + path)
	return read(t, res, err)
}

func (a *testApp) post(t *testing.T, c *http.Client, path string, form url.Values) page {
	res, err := c.PostForm(a.srv.URL+path, form)
	return read(t, res, err)
}

func (a *testApp) mustUser(t *testing.T, name string, role model.Role) int64 {
	t.Helper()
	id, err := a.users.Create(context.Background(), name, name+"@example.com", "password123", role, bcrypt.MinCost)
	require.NoError(t, err)
	return id
}

func (a *testApp) mustTicket(t *testing.T, owner int64, title string, p model.Priority) int64 {
	t.Helper()
	tk := model.Ticket{UserID: owner, Title: title, Description: "details", Priority: p}
	require.NoError(t, a.tickets.Create(context.Background(), &tk))
	return tk.ID
}

func (a *testApp) login(t *testing.T, name string) *http.Client {
	t.Helper()
	c := a.client(t)
	p := a.post(t, c, "/login", url.Values{"username": {name}, "password": {"password123"}})
	require.Contains(t, p.body, "Login successful!")
	return c
}

func (a *testApp) ticketCount(t *testing.T) int64 {
	t.Helper()
	n, err := a.tickets.Count(context.Background(), repository.Query{})
	require.NoError(t, err)
	return n
}

func hasNotice(t *testing.T, p page, msg string) {
	t.Helper()
	assert.Contains(t, p.body, html.EscapeString(msg))
}

var rowRE = regexp.MustCompile(`class="ticket-row"`)

func rows(p page) int { return len(rowRE.FindAllString(p.body, -1)) }

func TestRegisterSubmitAndList(t *testing.T) {
	a := newTestApp(t, false)
	c := a.client(t)

	p := a.post(t, c, "/register", url.Values{
		"username": {"alice01"}, "email": {"alice@x.com"}, "password": {"longpassword1"},
	})
	assert.Equal(t, "/", p.path)
	hasNotice(t, p, "Registration successful! You are now logged in.")

	p = a.post(t, c, "/submit_ticket", url.Values{
		"title": {"VPN down"}, "description": {"Cannot connect"}, "priority": {"High"},
	})
	assert.Equal(t, "/tickets", p.path)
	hasNotice(t, p, "Ticket submitted successfully!")
	assert.Equal(t, 1, rows(p))
	assert.Contains(t, p.body, `<td class="owner">alice01</td>`)
	assert.Contains(t, p.body, `<td class="status">open</td>`)
	assert.Contains(t, p.body, "VPN down")

	select {
	case ev := <-a.events:
		assert.Equal(t, queue.TicketCreated, ev.Action)
		assert.Equal(t, "VPN down", ev.Title)
		assert.Equal(t, "alice01", ev.ActorName)
	case <-time.After(2 * time.Second):
		t.Fatal("no ticket event published")
	}
}

func TestRegisterDuplicateDoesNotLogIn(t *testing.T) {
	a := newTestApp(t, false)
	a.mustUser(t, "alice01", model.RoleApprentice)

	for _, form := range []url.Values{
		{"username": {"alice01"}, "email": {"new@x.com"}, "password": {"longpassword1"}},
		{"username": {"newname"}, "email": {"ALICE01@example.com"}, "password": {"longpassword1"}},
	} {
		c := a.client(t)
		p := a.post(t, c, "/register", form)
		assert.Equal(t, "/register", p.path)
		hasNotice(t, p, "Email or username is already registered. Please log in.")

		p = a.get(t, c, "/tickets")
		assert.Equal(t, "/login", p.path)
		hasNotice(t, p, "You need to log in to view this page.")
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	a := newTestApp(t, false)
	p := a.post(t, a.client(t), "/register", url.Values{
		"username": {"bob"}, "email": {"bob@x.com"}, "password": {"short"},
	})
	assert.Equal(t, "/register", p.path)
	hasNotice(t, p, "Password must be at least 8 characters.")
}

func TestLoginFailuresAreIdentical(t *testing.T) {
	a := newTestApp(t, false)
	a.mustUser(t, "alice", model.RoleApprentice)

	wrong := a.post(t, a.client(t), "/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	unknown := a.post(t, a.client(t), "/login", url.Values{"username": {"ghost"}, "password": {"nope"}})
	hasNotice(t, wrong, "Invalid credentials. Please try again.")
	assert.Equal(t, wrong.status, unknown.status)
	assert.Equal(t, wrong.body, unknown.body)
}

func TestLogout(t *testing.T) {
	a := newTestApp(t, false)
	a.mustUser(t, "alice", model.RoleApprentice)
	c := a.login(t, "alice")

	p := a.get(t, c, "/logout")
	assert.Equal(t, "/login", p.path)
	hasNotice(t, p, "You have been logged out.")

	p = a.get(t, c, "/")
	assert.Equal(t, "/login", p.path)

	// Logging out without a session is fine too.
	p = a.get(t, a.client(t), "/logout")
	assert.Equal(t, http.StatusOK, p.status)
}

func TestHomeSplitsByRole(t *testing.T) {
	a := newTestApp(t, false)
	a.mustUser(t, "alice", model.RoleApprentice)
	a.mustUser(t, "root", model.RoleAdmin)

	assert.Contains(t, a.get(t, a.login(t, "alice"), "/").body, "Welcome, alice")
	assert.Contains(t, a.get(t, a.login(t, "root"), "/").body, "Admin dashboard")
	assert.Contains(t, a.get(t, a.client(t), "/faq").body, "Frequently asked questions")
}

func TestApprenticeSeesOnlyOwnTickets(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	bob := a.mustUser(t, "bob", model.RoleApprentice)
	a.mustTicket(t, alice, "alice high", model.PriorityHigh)
	a.mustTicket(t, alice, "alice low", model.PriorityLow)
	a.mustTicket(t, bob, "bob high", model.PriorityHigh)
	c := a.login(t, "alice")

	for query, want := range map[string]int{
		"":                            2,
		"?priority=High":              1,
		"?status=open":                2,
		"?status=closed":              0,
		"?apprentice_name=bob":        2,
		"?apprentice_id=" + itoa(bob): 2,
	} {
		p := a.get(t, c, "/tickets"+query)
		assert.Equal(t, want, rows(p), query)
		assert.NotContains(t, p.body, "bob high", query)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestAdminListingFilters(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	bob := a.mustUser(t, "bob", model.RoleApprentice)
	a.mustUser(t, "root", model.RoleAdmin)
	a.mustTicket(t, alice, "alice high", model.PriorityHigh)
	a.mustTicket(t, alice, "alice low", model.PriorityLow)
	a.mustTicket(t, bob, "bob high", model.PriorityHigh)
	c := a.login(t, "root")

	assert.Equal(t, 3, rows(a.get(t, c, "/tickets")))
	assert.Equal(t, 2, rows(a.get(t, c, "/tickets?priority=High")))
	assert.Equal(t, 1, rows(a.get(t, c, "/tickets?apprentice_name=BO")))
	assert.Equal(t, 2, rows(a.get(t, c, "/tickets?apprentice_id="+itoa(alice))))

	p := a.get(t, c, "/tickets?apprentice_id=abc&priority=High")
	hasNotice(t, p, "Apprentice ID must be numeric.")
	assert.Equal(t, 2, rows(p))
}

func TestViewAndEditOwnership(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	a.mustUser(t, "bob", model.RoleApprentice)
	a.mustUser(t, "root", model.RoleAdmin)
	tid := a.mustTicket(t, alice, "printer jam", model.PriorityLow)
	path := "/view_ticket/" + itoa(tid)

	p := a.get(t, a.login(t, "alice"), path)
	assert.Equal(t, path, p.path)
	assert.Contains(t, p.body, "printer jam")

	assert.Contains(t, a.get(t, a.login(t, "root"), path).body, "printer jam")

	bob := a.login(t, "bob")
	p = a.get(t, bob, path)
	assert.Equal(t, "/tickets", p.path)
	hasNotice(t, p, "Ticket not found!")

	p = a.post(t, bob, "/edit_ticket/"+itoa(tid), url.Values{
		"title": {"hijacked"}, "description": {"x"}, "priority": {"Low"}, "status": {"closed"},
	})
	hasNotice(t, p, "Ticket not found!")
	got, err := a.tickets.GetByID(context.Background(), tid)
	require.NoError(t, err)
	assert.Equal(t, "printer jam", got.Title)

	p = a.get(t, bob, "/view_ticket/99999")
	hasNotice(t, p, "Ticket not found!")

	p = a.get(t, bob, "/view_ticket/abc")
	assert.Equal(t, http.StatusNotFound, p.status)
}

func TestViewRendersMarkdown(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	tk := model.Ticket{UserID: alice, Title: "t", Description: "**bold** <script>x</script>", Priority: model.PriorityLow}
	require.NoError(t, a.tickets.Create(context.Background(), &tk))

	p := a.get(t, a.login(t, "alice"), "/view_ticket/"+itoa(tk.ID))
	assert.Contains(t, p.body, "<strong>bold</strong>")
	assert.NotContains(t, p.body, "<script>x</script>")
}

func TestEditRoundTrip(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	tid := a.mustTicket(t, alice, "old title", model.PriorityLow)
	c := a.login(t, "alice")
	path := "/edit_ticket/" + itoa(tid)

	p := a.get(t, c, path)
	assert.Contains(t, p.body, `value="old title"`)

	p = a.post(t, c, path, url.Values{"title": {"  "}, "description": {"d"}, "priority": {"Low"}, "status": {"open"}})
	assert.Equal(t, path, p.path)
	hasNotice(t, p, "Title and description are required!")

	p = a.post(t, c, path, url.Values{
		"title": {"new title"}, "description": {"new description"}, "priority": {"High"}, "status": {"in_progress"},
	})
	assert.Equal(t, "/tickets", p.path)
	hasNotice(t, p, "Ticket updated successfully!")

	got, err := a.tickets.GetByID(context.Background(), tid)
	require.NoError(t, err)
	assert.Equal(t, "new title", got.Title)
	assert.Equal(t, "new description", got.Description)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestSubmitValidation(t *testing.T) {
	a := newTestApp(t, false)
	a.mustUser(t, "alice", model.RoleApprentice)
	c := a.login(t, "alice")

	p := a.post(t, c, "/submit_ticket", url.Values{"title": {""}, "description": {"d"}, "priority": {"High"}})
	assert.Equal(t, "/submit_ticket", p.path)
	hasNotice(t, p, "Title and description are required!")

	p = a.post(t, c, "/submit_ticket", url.Values{"title": {"t"}, "description": {"d"}, "priority": {"Urgent"}})
	hasNotice(t, p, "Priority must be High, Medium or Low.")
	assert.Zero(t, a.ticketCount(t))
}

func TestDeleteTicket(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	a.mustUser(t, "root", model.RoleAdmin)
	tid := a.mustTicket(t, alice, "Broken mouse", model.PriorityLow)

	p := a.post(t, a.login(t, "alice"), "/delete_ticket/"+itoa(tid), nil)
	assert.Equal(t, "/", p.path)
	hasNotice(t, p, "You do not have permission to view this page.")
	assert.EqualValues(t, 1, a.ticketCount(t))

	root := a.login(t, "root")
	p = a.post(t, root, "/delete_ticket/99999", nil)
	assert.Equal(t, "/tickets", p.path)
	hasNotice(t, p, "Ticket not found.")
	assert.EqualValues(t, 1, a.ticketCount(t))

	p = a.post(t, root, "/delete_ticket/"+itoa(tid), nil)
	hasNotice(t, p, "Ticket 'Broken mouse' has been deleted.")
	assert.Zero(t, a.ticketCount(t))
}

func TestAdminUsersGuard(t *testing.T) {
	a := newTestApp(t, false)
	a.mustUser(t, "alice", model.RoleApprentice)
	a.mustUser(t, "root", model.RoleAdmin)

	p := a.get(t, a.client(t), "/admin_users")
	assert.Equal(t, "/login", p.path)
	hasNotice(t, p, "You need to log in to manage users.")

	p = a.get(t, a.login(t, "alice"), "/admin_users")
	assert.Equal(t, http.StatusForbidden, p.status)

	root := a.login(t, "root")
	p = a.get(t, root, "/admin_users")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Equal(t, 2, strings.Count(p.body, `class="user-row"`))

	p = a.get(t, root, "/admin_users?role=admin")
	assert.Equal(t, 1, strings.Count(p.body, `class="user-row"`))
}

func TestAdminDemotionTakesEffectImmediately(t *testing.T) {
	a := newTestApp(t, false)
	rootID := a.mustUser(t, "root", model.RoleAdmin)
	c := a.login(t, "root")

	require.NoError(t, a.users.Update(context.Background(), rootID, "root", "root@example.com", model.RoleApprentice))
	assert.Equal(t, http.StatusForbidden, a.get(t, c, "/admin_users").status)
}

func TestDemotedAdminLosesTicketScope(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	rootID := a.mustUser(t, "root", model.RoleAdmin)
	tid := a.mustTicket(t, alice, "alice ticket", model.PriorityLow)
	a.mustTicket(t, rootID, "root ticket", model.PriorityLow)
	c := a.login(t, "root")
	require.Equal(t, 2, rows(a.get(t, c, "/tickets")))

	require.NoError(t, a.users.Update(context.Background(), rootID, "root", "root@example.com", model.RoleApprentice))

	p := a.get(t, c, "/tickets")
	assert.Equal(t, 1, rows(p))
	assert.NotContains(t, p.body, "alice ticket")

	p = a.get(t, c, "/view_ticket/"+itoa(tid))
	hasNotice(t, p, "Ticket not found!")

	p = a.get(t, c, "/api/tickets")
	require.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, `"total":1`)

	// deleting the account ends the session
	require.NoError(t, a.users.Delete(context.Background(), rootID))
	p = a.get(t, c, "/tickets")
	assert.Equal(t, "/login", p.path)
	assert.Equal(t, http.StatusUnauthorized, a.get(t, c, "/api/tickets").status)
}

func TestAdminEditAndDeleteUsers(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	a.mustUser(t, "bob", model.RoleApprentice)
	rootID := a.mustUser(t, "root", model.RoleAdmin)
	a.mustTicket(t, alice, "alice ticket", model.PriorityLow)
	c := a.login(t, "root")

	p := a.get(t, c, "/admin/users/edit/"+itoa(alice))
	assert.Contains(t, p.body, `value="alice@example.com"`)

	p = a.post(t, c, "/admin/users/edit/"+itoa(alice), url.Values{"username": {"bob"}, "email": {"alice@example.com"}, "role": {"apprentice"}})
	hasNotice(t, p, "Username or email already in use.")

	p = a.post(t, c, "/admin/users/edit/"+itoa(alice), url.Values{"username": {"alice2"}, "email": {"alice2@example.com"}, "role": {"admin"}})
	assert.Equal(t, "/admin_users", p.path)
	hasNotice(t, p, "User updated successfully!")
	u, err := a.users.GetByID(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
	assert.True(t, u.IsAdmin())

	p = a.get(t, c, "/admin/users/edit/99999")
	hasNotice(t, p, "User not found.")

	p = a.post(t, c, "/admin/users/delete/"+itoa(rootID), nil)
	hasNotice(t, p, "You cannot delete your own account.")

	p = a.post(t, c, "/admin/users/delete/99999", nil)
	hasNotice(t, p, "User not found.")

	p = a.post(t, c, "/admin/users/delete/"+itoa(alice), nil)
	hasNotice(t, p, "User deleted successfully!")
	_, err = a.users.GetByID(context.Background(), alice)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Zero(t, a.ticketCount(t))
}

var linkRE = regexp.MustCompile(`http://\S+/reset-password/(\S+)`)

func TestPasswordReset(t *testing.T) {
	a := newTestApp(t, false)
	a.mustUser(t, "alice", model.RoleApprentice)
	c := a.client(t)

	p := a.post(t, c, "/forgot-password", url.Values{"email": {"  "}})
	assert.Equal(t, "/forgot-password", p.path)
	hasNotice(t, p, "Please enter your email address.")

	p = a.post(t, c, "/forgot-password", url.Values{"email": {"ghost@example.com"}})
	hasNotice(t, p, "If an account with that email exists, a reset link has been sent.")
	_, sent := a.mailer.last()
	assert.False(t, sent)

	p = a.post(t, c, "/forgot-password", url.Values{"email": {"ALICE@example.com"}})
	assert.Equal(t, "/login", p.path)
	hasNotice(t, p, "If an account with that email exists, a reset link has been sent.")
	msg, sent := a.mailer.last()
	require.True(t, sent)
	assert.Equal(t, "Reset your password", msg.Subject)
	m := linkRE.FindStringSubmatch(msg.Body)
	require.Len(t, m, 2)
	token := m[1]
	path := "/reset-password/" + token

	p = a.get(t, c, "/reset-password/not-a-token")
	assert.Equal(t, "/forgot-password", p.path)
	hasNotice(t, p, "Invalid reset link.")

	p = a.get(t, c, path)
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, "Choose a new password")

	p = a.post(t, c, path, url.Values{"password": {"short"}, "confirm_password": {"short"}})
	hasNotice(t, p, "Password must be at least 8 characters.")

	p = a.post(t, c, path, url.Values{"password": {"newpassword1"}, "confirm_password": {"newpassword2"}})
	hasNotice(t, p, "Passwords do not match.")

	p = a.post(t, c, path, url.Values{"password": {"newpassword1"}, "confirmPassword": {"newpassword1"}})
	assert.Equal(t, "/login", p.path)
	hasNotice(t, p, "Your password has been reset. You can now log in.")

	p = a.post(t, a.client(t), "/login", url.Values{"username": {"alice"}, "password": {"newpassword1"}})
	hasNotice(t, p, "Login successful!")
}

func TestAPITickets(t *testing.T) {
	a := newTestApp(t, false)
	alice := a.mustUser(t, "alice", model.RoleApprentice)
	bob := a.mustUser(t, "bob", model.RoleApprentice)
	a.mustUser(t, "root", model.RoleAdmin)
	for i := 0; i < 3; i++ {
		a.mustTicket(t, alice, "alice "+strconv.Itoa(i), model.PriorityLow)
	}
	a.mustTicket(t, bob, "bob", model.PriorityLow)

	p := a.get(t, a.client(t), "/api/tickets")
	assert.Equal(t, http.StatusUnauthorized, p.status)

	decode := func(p page) (out struct {
		Data     []model.Ticket `json:"data"`
		Total    int64          `json:"total"`
		Page     int            `json:"page"`
		PageSize int            `json:"page_size"`
	}) {
		require.Equal(t, http.StatusOK, p.status, p.body)
		require.NoError(t, json.Unmarshal([]byte(p.body), &out))
		return out
	}

	res := decode(a.get(t, a.login(t, "alice"), "/api/tickets?page_size=2&page=2"))
	assert.EqualValues(t, 3, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.PageSize)
	require.Len(t, res.Data, 1)
	assert.Equal(t, alice, res.Data[0].UserID)

	root := a.login(t, "root")
	res = decode(a.get(t, root, "/api/tickets?page_size=500&page=-3"))
	assert.EqualValues(t, 4, res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 100, res.PageSize)

	res = decode(a.get(t, root, "/api/tickets"))
	assert.Equal(t, 20, res.PageSize)
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t, true)
	p := a.get(t, a.client(t), "/healthz")
	assert.Equal(t, http.StatusOK, p.status)
	assert.Equal(t, "ok", p.body)
}

var csrfRE = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func TestCSRFProtectsForms(t *testing.T) {
	a := newTestApp(t, true)
	a.mustUser(t, "alice", model.RoleApprentice)
	c := a.client(t)

	res, err := noFollow(c).PostForm(a.srv.URL+"/login", url.Values{"username": {"alice"}, "password": {"password123"}})
	p := read(t, res, err)
	assert.Equal(t, http.StatusBadRequest, p.status)

	p = a.get(t, c, "/login")
	m := csrfRE.FindStringSubmatch(p.body)
	require.Len(t, m, 2)

	p = a.post(t, c, "/login", url.Values{"username": {"alice"}, "password": {"password123"}, "_csrf": {m[1]}})
	hasNotice(t, p, "Login successful!")
}
