package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
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
	"github.com/iliyamo/apprentice-helpdesk/internal/repository"
	"github.com/iliyamo/apprentice-helpdesk/internal/utils"
)

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func newUsers(t *testing.T) *repository.UserRepo {
	t.Helper()
	db, err := database.Open(context.Background(), config.DBConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "svc.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewUserRepo(db)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(newUsers(t), bcrypt.MinCost)

	id, err := auth.Register(ctx, "alice01", "alice@x.com", "longpassword1")
	require.NoError(t, err)
	assert.Equal(t, "alice01", id.Username)
	assert.Equal(t, model.RoleApprentice, id.Role)
	assert.True(t, id.Authenticated())

	got, err := auth.Login(ctx, "alice01", "longpassword1")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(newUsers(t), bcrypt.MinCost)
	_, err := auth.Register(ctx, "alice01", "alice@x.com", "longpassword1")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "alice01", "other@x.com", "longpassword1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = auth.Register(ctx, "bob", "ALICE@X.COM", "longpassword1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterValidation(t *testing.T) {
	auth := NewAuthService(newUsers(t), bcrypt.MinCost)

	cases := map[string][3]string{
		MsgFieldsRequired:   {"", "a@x.com", "longpassword1"},
		MsgPasswordTooShort: {"alice", "a@x.com", "short"},
	}
	for want, in := range cases {
		_, err := auth.Register(context.Background(), in[0], in[1], in[2])
		require.ErrorIs(t, err, ErrValidation)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, want, ve.Msg)
	}
}

func TestLoginFailuresLookAlike(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(newUsers(t), bcrypt.MinCost)
	_, err := auth.Register(ctx, "alice01", "alice@x.com", "longpassword1")
	require.NoError(t, err)

	_, errWrongPwd := auth.Login(ctx, "alice01", "nope")
	_, errNoUser := auth.Login(ctx, "ghost", "nope")
	assert.ErrorIs(t, errWrongPwd, ErrInvalidCredentials)
	assert.Equal(t, errWrongPwd, errNoUser)
}

func TestLoginUnknownUserStillChecksBcrypt(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(newUsers(t), bcrypt.MinCost)
	_, err := auth.Register(ctx, "alice01", "alice@x.com", "longpassword1")
	require.NoError(t, err)

	var hashes []string
	verifyPassword = func(hash, plain string) bool {
		hashes = append(hashes, hash)
		return utils.VerifyPassword(hash, plain)
	}
	t.Cleanup(func() { verifyPassword = utils.VerifyPassword })

	_, err = auth.Login(ctx, "ghost", "longpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "alice01", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, hashes, 2)
	for _, h := range hashes {
		cost, err := bcrypt.Cost([]byte(h))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost, cost)
	}
}

func newReset(t *testing.T, mailer mail.Sender) (*ResetService, *AuthService) {
	users := newUsers(t)
	return &ResetService{
		Users:      users,
		Tokens:     utils.NewTokenCodec("s3cret"),
		Mailer:     mailer,
		BcryptCost: bcrypt.MinCost,
		Logger:     logging.Discard(),
	}, NewAuthService(users, bcrypt.MinCost)
}

func linkFor(token string) string { return "http://helpdesk.test/reset-password/" + token }

func TestResetRequestSendsLinkOnlyForKnownEmail(t *testing.T) {
	ctx := context.Background()
	mailer := &recordingMailer{}
	reset, auth := newReset(t, mailer)
	_, err := auth.Register(ctx, "alice01", "alice@x.com", "longpassword1")
	require.NoError(t, err)

	require.NoError(t, reset.Request(ctx, "nobody@x.com", linkFor))
	assert.Empty(t, mailer.sent)

	require.NoError(t, reset.Request(ctx, "  ALICE@x.com ", linkFor))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@x.com", mailer.sent[0].To)
	assert.Equal(t, ResetSubject, mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Body, "Hi alice01,")
	assert.Contains(t, mailer.sent[0].Body, "http://helpdesk.test/reset-password/")

	err = reset.Request(ctx, "   ", linkFor)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResetRequestSwallowsMailFailure(t *testing.T) {
	ctx := context.Background()
	reset, auth := newReset(t, &recordingMailer{err: errors.New("smtp down")})
	_, err := auth.Register(ctx, "alice01", "alice@x.com", "longpassword1")
	require.NoError(t, err)

	assert.NoError(t, reset.Request(ctx, "alice@x.com", linkFor))
}

func TestResetFlow(t *testing.T) {
	ctx := context.Background()
	mailer := &recordingMailer{}
	reset, auth := newReset(t, mailer)
	_, err := auth.Register(ctx, "alice01", "alice@x.com", "longpassword1")
	require.NoError(t, err)
	require.NoError(t, reset.Request(ctx, "alice@x.com", linkFor))
	token := mailer.sent[0].Body[strings.Index(mailer.sent[0].Body, "reset-password/")+len("reset-password/"):]
	token = token[:strings.Index(token, "\n")]

	email, err := reset.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", email)

	var ve *ValidationError
	err = reset.Reset(ctx, token, "short", "short")
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MsgPasswordTooShort, ve.Msg)

	err = reset.Reset(ctx, token, "newpassword1", "newpassword2")
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MsgPasswordMismatch, ve.Msg)

	require.NoError(t, reset.Reset(ctx, token, "newpassword1", "newpassword1"))
	_, err = auth.Login(ctx, "alice01", "newpassword1")
	require.NoError(t, err)
	_, err = auth.Login(ctx, "alice01", "longpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Still usable inside the window.
	require.NoError(t, reset.Reset(ctx, token, "thirdpassword", "thirdpassword"))
}

func TestResetRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	reset, auth := newReset(t, &recordingMailer{})
	_, err := auth.Register(ctx, "alice01", "alice@x.com", "longpassword1")
	require.NoError(t, err)

	assert.ErrorIs(t, reset.Reset(ctx, "garbage", "newpassword1", "newpassword1"), utils.ErrTokenInvalid)

	t0 := time.Now()
	reset.Tokens.Now = func() time.Time { return t0 }
	token, err := reset.Tokens.NewResetToken("alice@x.com")
	require.NoError(t, err)
	reset.Tokens.Now = func() time.Time { return t0.Add(utils.ResetTTL + time.Minute) }
	assert.ErrorIs(t, reset.Reset(ctx, token, "newpassword1", "newpassword1"), utils.ErrTokenExpired)

	reset.Tokens.Now = time.Now
	ghost, err := reset.Tokens.NewResetToken("ghost@x.com")
	require.NoError(t, err)
	assert.ErrorIs(t, reset.Reset(ctx, ghost, "newpassword1", "newpassword1"), utils.ErrTokenInvalid)
}
