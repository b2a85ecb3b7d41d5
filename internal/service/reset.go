package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/apprentice-helpdesk/internal/mail"
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
	"github.com/iliyamo/apprentice-helpdesk/internal/utils"
)

// ResetSubject is the subject line of the reset email.
const ResetSubject = "Reset your password"

// ResetService issues and redeems password reset links.  Tokens are not
// stored; a link is valid for utils.ResetTTL after issuance and may be
// used more than once in that window.
type ResetService struct {
	Users      *repository.UserRepo
	Tokens     *utils.TokenCodec
	Mailer     mail.Sender
	BcryptCost int
	Logger     *slog.Logger
}

// Request sends a reset link if an account with email exists.  Unknown
// addresses and delivery failures are indistinguishable to the caller:
// only an empty address or a database error is returned.
func (s *ResetService) Request(ctx context.Context, email string, linkFor func(token string) string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalid(MsgEmailRequired)
	}

	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.Tokens.NewResetToken(email)
	if err != nil {
		return err
	}
	link := linkFor(token)

	msg := mail.Message{
		To:      email,
		Subject: ResetSubject,
		Body:    resetBody(u.Username, link),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		s.Logger.Warn("reset email failed to send", "err", err)
		s.Logger.Info("password reset link", "link", link)
	}
	return nil
}

func resetBody(username, link string) string {
	return fmt.Sprintf("Hi %s,\n\n"+
		"We received a request to reset your password.\n\n"+
		"Click the link below to choose a new password (valid for 1 hour):\n"+
		"%s\n\n"+
		"If you didn't request this, you can ignore this email.", username, link)
}

// Verify returns the email a token was issued for, or utils.ErrTokenExpired
// / utils.ErrTokenInvalid.
func (s *ResetService) Verify(token string) (string, error) {
	return s.Tokens.ParseResetToken(token)
}

// Reset verifies the token and the new password, then stores the new
// hash.  A token for an address that no longer has an account is
// reported as invalid.
func (s *ResetService) Reset(ctx context.Context, token, password, confirm string) error {
	email, err := s.Verify(token)
	if err != nil {
		return err
	}
	password = strings.TrimSpace(password)
	confirm = strings.TrimSpace(confirm)
	if len(password) < MinPasswordLen {
		return invalid(MsgPasswordTooShort)
	}
	if password != confirm {
		return invalid(MsgPasswordMismatch)
	}
	err = s.Users.SetPasswordByEmail(ctx, email, password, s.BcryptCost)
	if errors.Is(err, repository.ErrUserNotFound) {
		return utils.ErrTokenInvalid
	}
	return err
}
