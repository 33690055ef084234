package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchendiary/kitchen-diary-api/config"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/apperr"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/infrastructure/memory"
	"github.com/kitchendiary/kitchen-diary-api/pkg/helpers"
	"github.com/kitchendiary/kitchen-diary-api/pkg/mailer"
)

type fakePublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	fail error
}

func (p *fakePublisher) PublishJSON(ctx context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	if job, ok := body.(mailer.EmailJob); ok {
		p.jobs = append(p.jobs, job)
	}
	return nil
}

func (p *fakePublisher) last(t *testing.T) mailer.EmailJob {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.jobs)
	return p.jobs[len(p.jobs)-1]
}

// linkToken pulls the pathless token off the emailed link.
func linkToken(t *testing.T, html, baseURL string) string {
	t.Helper()
	i := strings.Index(html, baseURL+"/")
	require.GreaterOrEqual(t, i, 0, "email should contain a %s link", baseURL)
	rest := html[i+len(baseURL)+1:]
	if j := strings.IndexByte(rest, '"'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

type userFixture struct {
	svc *UserService
	pub *fakePublisher
	cfg *config.Config
	ctx context.Context
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	cfg := &config.Config{
		ConfirmURL:       "http://app.test/confirm",
		ResetPasswordURL: "http://app.test/resetpassword",
		ResetTokenTTL:    30 * time.Minute,
		MailSendEnabled:  true,
	}
	pub := &fakePublisher{}
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	return &userFixture{
		svc: NewUserService(memory.NewUserStore(), jwt, nil, nil, pub, nil, "", cfg),
		pub: pub,
		cfg: cfg,
		ctx: context.Background(),
	}
}

func (f *userFixture) register(t *testing.T, email string) *entity.User {
	t.Helper()
	u, err := f.svc.Register(f.ctx, RegisterInput{
		FullName: "Test User",
		Username: strings.Split(email, "@")[0],
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return u
}

func (f *userFixture) registerVerified(t *testing.T, email string) *entity.User {
	t.Helper()
	u := f.register(t, email)
	u, err := f.svc.VerifyAccount(f.ctx, u.ConfirmationCode)
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	f := newUserFixture(t)

	u := f.register(t, "alice@example.com")
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.IsVerified)
	assert.NotEmpty(t, u.ConfirmationCode)
	assert.NotEqual(t, "password123", u.Password, "password must be stored hashed")

	job := f.pub.last(t)
	assert.Equal(t, "alice@example.com", job.To)
	assert.Contains(t, job.HTML, f.cfg.ConfirmURL+"/"+u.ConfirmationCode)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newUserFixture(t)
	f.register(t, "alice@example.com")

	_, err := f.svc.Register(f.ctx, RegisterInput{
		FullName: "Other",
		Username: "other",
		Email:    "alice@example.com",
		Password: "password123",
	})
	assert.True(t, apperr.Is(err, apperr.KindAlreadyExists))
}

func TestRegister_DeliveryFailureStillCreatesAccount(t *testing.T) {
	f := newUserFixture(t)
	f.pub.fail = errors.New("broker down")

	u, err := f.svc.Register(f.ctx, RegisterInput{
		FullName: "Alice",
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDeliveryFailed))
	require.NotNil(t, u, "account is created even when the email fails")

	stored, err := f.svc.Repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.ConfirmationCode, "the code survives for a resend")
}

func TestVerifyAccount(t *testing.T) {
	f := newUserFixture(t)
	u := f.register(t, "alice@example.com")

	got, err := f.svc.VerifyAccount(f.ctx, u.ConfirmationCode)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Empty(t, got.ConfirmationCode)

	// single-use
	_, err = f.svc.VerifyAccount(f.ctx, u.ConfirmationCode)
	assert.True(t, apperr.Is(err, apperr.KindInvalidToken))

	_, err = f.svc.VerifyAccount(f.ctx, "bogus")
	assert.True(t, apperr.Is(err, apperr.KindInvalidToken))
}

func TestAuthenticate(t *testing.T) {
	f := newUserFixture(t)
	f.registerVerified(t, "alice@example.com")

	u, err := f.svc.Authenticate(f.ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)

	_, err = f.svc.Authenticate(f.ctx, "alice@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = f.svc.Authenticate(f.ctx, "nobody@example.com", "password123")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestAuthenticate_UnverifiedBlocked(t *testing.T) {
	f := newUserFixture(t)
	f.register(t, "alice@example.com")

	_, err := f.svc.Authenticate(f.ctx, "alice@example.com", "password123")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	assert.Contains(t, err.Error(), "not verified")
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	f := newUserFixture(t)
	f.registerVerified(t, "alice@example.com")

	resp, pair, err := f.svc.Login(f.ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.AccessTokenExpiry.After(time.Now()))

	claims, err := f.svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
}

func TestForgotPassword(t *testing.T) {
	f := newUserFixture(t)
	u := f.registerVerified(t, "alice@example.com")

	require.NoError(t, f.svc.ForgotPassword(f.ctx, "alice@example.com"))

	token := linkToken(t, f.pub.last(t).HTML, f.cfg.ResetPasswordURL)
	require.NotEmpty(t, token)

	stored, err := f.svc.Repo.GetByID(u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ResetToken)
	assert.NotEqual(t, token, stored.ResetToken, "only the hash is stored")
	assert.Equal(t, helpers.HashToken(token), stored.ResetToken)
	assert.True(t, stored.ResetTokenExpiry.After(time.Now()))
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	f := newUserFixture(t)
	err := f.svc.ForgotPassword(f.ctx, "nobody@example.com")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestForgotPassword_DeliveryFailureRollsBackToken(t *testing.T) {
	f := newUserFixture(t)
	u := f.registerVerified(t, "alice@example.com")
	f.pub.fail = errors.New("broker down")

	err := f.svc.ForgotPassword(f.ctx, "alice@example.com")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDeliveryFailed))

	stored, err := f.svc.Repo.GetByID(u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetToken, "an undeliverable token must not stay live")
}

func TestResetPassword(t *testing.T) {
	f := newUserFixture(t)
	f.registerVerified(t, "alice@example.com")
	require.NoError(t, f.svc.ForgotPassword(f.ctx, "alice@example.com"))
	token := linkToken(t, f.pub.last(t).HTML, f.cfg.ResetPasswordURL)

	require.NoError(t, f.svc.ResetPassword(f.ctx, token, "newpassword123"))

	_, err := f.svc.Authenticate(f.ctx, "alice@example.com", "newpassword123")
	assert.NoError(t, err)
	_, err = f.svc.Authenticate(f.ctx, "alice@example.com", "password123")
	assert.Error(t, err)

	// single-use
	err = f.svc.ResetPassword(f.ctx, token, "again123456")
	assert.True(t, apperr.Is(err, apperr.KindInvalidToken))
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	f := newUserFixture(t)
	f.cfg.ResetTokenTTL = -time.Minute
	f.registerVerified(t, "alice@example.com")
	require.NoError(t, f.svc.ForgotPassword(f.ctx, "alice@example.com"))
	token := linkToken(t, f.pub.last(t).HTML, f.cfg.ResetPasswordURL)

	err := f.svc.ResetPassword(f.ctx, token, "newpassword123")
	assert.True(t, apperr.Is(err, apperr.KindInvalidToken))

	// a fresh token still works after an expired one was rejected
	f.cfg.ResetTokenTTL = 30 * time.Minute
	require.NoError(t, f.svc.ForgotPassword(f.ctx, "alice@example.com"))
	fresh := linkToken(t, f.pub.last(t).HTML, f.cfg.ResetPasswordURL)
	assert.NoError(t, f.svc.ResetPassword(f.ctx, fresh, "newpassword123"))
}

func TestResetPassword_BogusToken(t *testing.T) {
	f := newUserFixture(t)
	err := f.svc.ResetPassword(f.ctx, "bogus", "newpassword123")
	assert.True(t, apperr.Is(err, apperr.KindInvalidToken))
}

func TestCreateUserAsAdmin(t *testing.T) {
	f := newUserFixture(t)
	admin := &entity.User{ID: "root", IsAdmin: true, IsVerified: true}
	in := CreateUserInput{FullName: "Bob", Username: "bob", Email: "bob@example.com", Password: "password123"}

	u, err := f.svc.CreateUserAsAdmin(f.ctx, admin, in)
	require.NoError(t, err)
	assert.True(t, u.IsVerified, "admin-created accounts skip confirmation")
	assert.Empty(t, u.ConfirmationCode)

	_, err = f.svc.CreateUserAsAdmin(f.ctx, &entity.User{ID: "bob"}, in)
	assert.True(t, apperr.Is(err, apperr.KindAdminRequired))

	_, err = f.svc.CreateUserAsAdmin(f.ctx, nil, in)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestUpdateUserRoleAndDelete(t *testing.T) {
	f := newUserFixture(t)
	admin := &entity.User{ID: "root", IsAdmin: true, IsVerified: true}
	target := f.registerVerified(t, "bob@example.com")

	got, err := f.svc.UpdateUserRole(f.ctx, admin, target.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	_, err = f.svc.UpdateUserRole(f.ctx, target, target.ID, false)
	assert.True(t, apperr.Is(err, apperr.KindAdminRequired))

	_, err = f.svc.UpdateUserRole(f.ctx, admin, "missing", true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, f.svc.DeleteUser(f.ctx, admin, target.ID))
	err = f.svc.DeleteUser(f.ctx, admin, target.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateProfile(t *testing.T) {
	f := newUserFixture(t)
	u := f.registerVerified(t, "alice@example.com")

	got, err := f.svc.UpdateProfile(f.ctx, u.ID, UpdateProfileInput{Username: "alice2"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, "Test User", got.FullName, "untouched fields keep their value")

	_, err = f.svc.UpdateProfile(f.ctx, "missing", UpdateProfileInput{Username: "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMailDisabledSkipsPublishing(t *testing.T) {
	f := newUserFixture(t)
	f.cfg.MailSendEnabled = false

	u := f.register(t, "alice@example.com")
	assert.NotEmpty(t, u.ConfirmationCode)
	assert.Empty(t, f.pub.jobs)
}
