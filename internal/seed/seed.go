// Package seed loads demo users and tickets from YAML into the database.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
)

//go:embed default.yaml
var defaultYAML []byte

// User is one seeded account.  Password is plain text and hashed on
// insert.
type User struct {
	Username string     `yaml:"username"`
	Email    string     `yaml:"email"`
	Password string     `yaml:"password"`
	Role     model.Role `yaml:"role"`
}

// Ticket is one seeded ticket.  Owner is a username from the same file or
// one that already exists.
type Ticket struct {
	Owner       string         `yaml:"owner"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Priority    model.Priority `yaml:"priority"`
	Status      model.Status   `yaml:"status"`
}

// Data is the document layout of a seed file.
type Data struct {
	Users   []User   `yaml:"users"`
	Tickets []Ticket `yaml:"tickets"`
}

// Default returns the built-in data set: five apprentices, five admins and
// ten tickets.
func Default() (Data, error) {
	return Decode(bytes.NewReader(defaultYAML))
}

// LoadFile reads a seed file from disk.
func LoadFile(path string) (Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return Data{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a seed document.  Unknown keys are errors.
func Decode(r io.Reader) (Data, error) {
	var d Data
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return Data{}, fmt.Errorf("decode seed: %w", err)
	}
	return d, d.validate()
}

func (d Data) validate() error {
	for i, u := range d.Users {
		if u.Username == "" || u.Email == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: username, email and password are required", i)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("users[%d]: invalid role %q", i, u.Role)
		}
	}
	for i, t := range d.Tickets {
		if t.Owner == "" || t.Title == "" || t.Description == "" {
			return fmt.Errorf("tickets[%d]: owner, title and description are required", i)
		}
		if !t.Priority.Valid() {
			return fmt.Errorf("tickets[%d]: invalid priority %q", i, t.Priority)
		}
		if t.Status != "" && !t.Status.Valid() {
			return fmt.Errorf("tickets[%d]: invalid status %q", i, t.Status)
		}
	}
	return nil
}

// Result counts what Apply did.
type Result struct {
	UsersCreated   int
	UsersSkipped   int
	TicketsCreated int
}

// Seeder writes seed data through the repositories.
type Seeder struct {
	Users      *repository.UserRepo
	Tickets    *repository.TicketRepo
	BcryptCost int
	Logger     *slog.Logger
}

// Apply inserts users that do not exist yet.  Tickets are inserted only
// when the tickets table is empty, unless force is set, so running the
// seeder twice does not duplicate them.
func (s *Seeder) Apply(ctx context.Context, d Data, force bool) (Result, error) {
	var res Result
	for _, u := range d.Users {
		_, err := s.Users.Create(ctx, u.Username, u.Email, u.Password, u.Role, s.BcryptCost)
		if errors.Is(err, repository.ErrUserExists) {
			s.Logger.Info("seed: user already exists", "username", u.Username)
			res.UsersSkipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		res.UsersCreated++
	}

	if len(d.Tickets) == 0 {
		return res, nil
	}
	if !force {
		n, err := s.Tickets.Count(ctx, repository.Query{})
		if err != nil {
			return res, err
		}
		if n > 0 {
			s.Logger.Info("seed: tickets already present, skipping", "count", n)
			return res, nil
		}
	}

	owners := map[string]int64{}
	for _, t := range d.Tickets {
		uid, ok := owners[t.Owner]
		if !ok {
			u, err := s.Users.GetByUsername(ctx, t.Owner)
			if err != nil {
				return res, fmt.Errorf("seed ticket %q: owner %s: %w", t.Title, t.Owner, err)
			}
			uid = u.ID
			owners[t.Owner] = uid
		}
		tk := model.Ticket{UserID: uid, Title: t.Title, Description: t.Description, Priority: t.Priority}
		if err := s.Tickets.Create(ctx, &tk); err != nil {
			return res, fmt.Errorf("seed ticket %q: %w", t.Title, err)
		}
		if t.Status != "" && t.Status != tk.Status {
			tk.Status = t.Status
			if err := s.Tickets.Update(ctx, &tk); err != nil {
				return res, fmt.Errorf("seed ticket %q status: %w", t.Title, err)
			}
		}
		res.TicketsCreated++
	}
	return res, nil
}
