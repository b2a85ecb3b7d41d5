package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iliyamo/apprentice-helpdesk/internal/model"
	"github.com/iliyamo/apprentice-helpdesk/internal/policy"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
	"github.com/iliyamo/apprentice-helpdesk/internal/utils"
)

// AuthService checks credentials and creates accounts.  Session cookies
// are the handler's business; the service only returns identities.
type AuthService struct {
	Users      *repository.UserRepo
	BcryptCost int

	absentOnce sync.Once
	absentHash string
}

var verifyPassword = utils.VerifyPassword

func NewAuthService(users *repository.UserRepo, cost int) *AuthService {
	return &AuthService{Users: users, BcryptCost: cost}
}

// Login looks the user up by exact username and verifies the password.
func (s *AuthService) Login(ctx context.Context, username, password string) (policy.Identity, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		// same bcrypt work as a wrong password, so timing does not reveal
		// which usernames exist
		verifyPassword(s.unknownUserHash(), password)
		return policy.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return policy.Identity{}, err
	}
	if !verifyPassword(u.PasswordHash, password) {
		return policy.Identity{}, ErrInvalidCredentials
	}
	return identityOf(u), nil
}

// Register creates an apprentice account and returns its identity so the
// caller can log the user in straight away.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (policy.Identity, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return policy.Identity{}, invalid(MsgFieldsRequired)
	}
	if len(password) < MinPasswordLen {
		return policy.Identity{}, invalid(MsgPasswordTooShort)
	}

	taken, err := s.Users.Taken(ctx, username, email)
	if err != nil {
		return policy.Identity{}, err
	}
	if taken {
		return policy.Identity{}, ErrAlreadyRegistered
	}

	id, err := s.Users.Create(ctx, username, email, password, model.RoleApprentice, s.BcryptCost)
	if errors.Is(err, repository.ErrUserExists) {
		// lost a race with a concurrent registration
		return policy.Identity{}, ErrAlreadyRegistered
	}
	if err != nil {
		return policy.Identity{}, err
	}
	return policy.Identity{UserID: id, Username: username, Role: model.RoleApprentice}, nil
}

// unknownUserHash is a hash at the configured cost that no password is
// checked against successfully in practice.
func (s *AuthService) unknownUserHash() string {
	s.absentOnce.Do(func() {
		if h, err := utils.HashPassword("helpdesk:unknown-user", s.BcryptCost); err == nil {
			s.absentHash = h
		}
	})
	return s.absentHash
}

func identityOf(u model.User) policy.Identity {
	return policy.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
