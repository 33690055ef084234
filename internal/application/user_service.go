package application

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kitchendiary/kitchen-diary-api/config"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/apperr"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/entity"
	"github.com/kitchendiary/kitchen-diary-api/internal/domain/policy"
	repo "github.com/kitchendiary/kitchen-diary-api/internal/domain/repository"
	"github.com/kitchendiary/kitchen-diary-api/pkg/helpers"
	"github.com/kitchendiary/kitchen-diary-api/pkg/mailer"
)

// JobPublisher enqueues outbound notification jobs. Satisfied by
// helpers.RabbitPublisher; tests use an in-process fake.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type UserService struct {
	Repo      repo.UserRepository
	JWT       *helpers.JWTManager
	Redis     *redis.Client
	Logger    *logrus.Logger
	Pub       JobPublisher
	GCS       *storage.Client
	GCSBucket string
	Cfg       *config.Config
}

func NewUserService(repo repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, pub JobPublisher, gcs *storage.Client, gcsBucket string, cfg *config.Config) *UserService {
	return &UserService{
		Repo:      repo,
		JWT:       jwt,
		Redis:     rdb,
		Logger:    logger,
		Pub:       pub,
		GCS:       gcs,
		GCSBucket: gcsBucket,
		Cfg:       cfg,
	}
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func sessionKey(userID string) string {
	return "user:session:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
}

// Register creates an unverified account and queues the confirmation
// email. The account is created even when delivery fails; the failure
// is reported distinctly so the caller can prompt a resend.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	existing, err := s.Repo.GetByEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.E(apperr.KindAlreadyExists, "user already exists")
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:            in.Email,
		Username:         in.Username,
		FullName:         in.FullName,
		Password:         hash,
		ConfirmationCode: uuid.NewString(),
	}
	if err := s.Repo.Create(u); err != nil {
		return nil, err
	}

	link := s.Cfg.ConfirmURL + "/" + u.ConfirmationCode
	html := fmt.Sprintf(`<h1>Email Confirmation</h1>
<h2>Hello %s</h2>
<p>Verify your email address to complete the signup and login to your Kitchen Diary account.</p>
<a href=%q>Click here</a>`, u.Username, link)

	if err := s.publishEmail(ctx, mailer.EmailJob{
		To:      u.Email,
		Subject: "Email Verification",
		HTML:    html,
	}); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("email", u.Email).Error("verification email failed")
		}
		return u, apperr.Wrap(apperr.KindDeliveryFailed, err, "email could not be sent")
	}
	return u, nil
}

// VerifyAccount consumes a confirmation code. The code is single-use
// and cleared on success.
func (s *UserService) VerifyAccount(ctx context.Context, code string) (*entity.User, error) {
	u, err := s.Repo.GetByConfirmationCode(code)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.E(apperr.KindInvalidToken, "invalid or expired confirmation code")
	}
	u.IsVerified = true
	u.ConfirmationCode = ""
	if err := s.Repo.Update(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate validates email/password. Unverified accounts are
// blocked regardless of credential correctness.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil || !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, apperr.E(apperr.KindUnauthenticated, "invalid credentials")
	}
	if !u.IsVerified {
		return nil, apperr.E(apperr.KindUnauthenticated, "your account is not verified, please verify your account")
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *UserService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID, sid)
	if err != nil {
		return TokenPair{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"username":   u.Username,
			"is_admin":   strconv.FormatBool(u.IsAdmin),
			"sid":        sid,
			"logged_in":  true,
			"created_at": nowRFC3339(),
		}
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, 24*time.Hour)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

type LoginResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResponse, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return &LoginResponse{UserID: u.ID, Email: u.Email, Username: u.Username, IsAdmin: u.IsAdmin}, pair, nil
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", apperr.E(apperr.KindUnauthenticated, "invalid refresh token")
	}
	u, err := s.Repo.GetByID(claims.UserID)
	if err != nil || u == nil {
		return TokenPair{}, "", apperr.E(apperr.KindUnauthenticated, "invalid refresh token")
	}
	// Validate current session id matches the token's sid
	if s.Redis != nil {
		key := sessionKey(u.ID)
		data, rErr := s.Redis.HGetAll(ctx, key).Result()
		if rErr != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			return TokenPair{}, "", apperr.E(apperr.KindUnauthenticated, "invalid refresh token")
		}
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return TokenPair{}, "", err
	}
	return pair, u.ID, nil
}

func (s *UserService) Logout(ctx context.Context, userID string) {
	if s.Redis != nil && userID != "" {
		_ = s.Redis.Del(ctx, sessionKey(userID)).Err()
	}
}

// ForgotPassword issues a single-use reset token. The opaque token goes
// out by email; only its sha256 is stored. A delivery failure rolls the
// token back and is reported as such.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Repo.GetByEmail(email)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.E(apperr.KindNotFound, "there is no user with that email")
	}

	token, err := helpers.GenToken(20)
	if err != nil {
		return err
	}
	u.ResetToken = helpers.HashToken(token)
	u.ResetTokenExpiry = time.Now().Add(s.Cfg.ResetTokenTTL)
	if err := s.Repo.Update(u); err != nil {
		return err
	}

	link := s.Cfg.ResetPasswordURL + "/" + token
	html := fmt.Sprintf(`<h1>Password Reset Link</h1>
<h2>Hello %s</h2>
<p>You are receiving this email because you (or someone else) has requested the reset of a password.</p>
<a href=%q>Click here to reset your password</a>`, u.Username, link)

	if err := s.publishEmail(ctx, mailer.EmailJob{
		To:      u.Email,
		Subject: "Password reset token",
		HTML:    html,
	}); err != nil {
		u.ResetToken = ""
		u.ResetTokenExpiry = time.Time{}
		if uErr := s.Repo.Update(u); uErr != nil && s.Logger != nil {
			s.Logger.WithError(uErr).WithField("user_id", u.ID).Warn("reset token rollback failed")
		}
		return apperr.Wrap(apperr.KindDeliveryFailed, err, "email could not be sent")
	}
	return nil
}

// ResetPassword consumes a reset token. Expired or unmatched tokens are
// rejected; success clears the token fields so it cannot be replayed.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	u, err := s.Repo.GetByResetToken(helpers.HashToken(token))
	if err != nil {
		return err
	}
	if u == nil || time.Now().After(u.ResetTokenExpiry) {
		return apperr.E(apperr.KindInvalidToken, "invalid token")
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	u.ResetToken = ""
	u.ResetTokenExpiry = time.Time{}
	return s.Repo.Update(u)
}

func (s *UserService) GetProfile(userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.E(apperr.KindNotFound, "user not found")
	}
	return u, nil
}

type UpdateProfileInput struct {
	FullName string
	Username string
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != "" {
		u.FullName = in.FullName
	}
	if in.Username != "" {
		u.Username = in.Username
	}
	if err := s.Repo.Update(u); err != nil {
		return nil, err
	}

	if s.Redis != nil {
		key := sessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"username":   u.Username,
			"updated_at": nowRFC3339(),
		})
		if ttl, tErr := s.Redis.TTL(ctx, key).Result(); tErr == nil && ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, pErr := pipe.Exec(ctx); pErr != nil && s.Logger != nil {
			s.Logger.WithError(pErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}
	return u, nil
}

// UploadProfilePhoto stores the image in GCS and records its public URL.
func (s *UserService) UploadProfilePhoto(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	u, err := s.GetProfile(userID)
	if err != nil {
		return "", err
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", apperr.E(apperr.KindInternal, "object storage not configured")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("profiles", userID, uuid.NewString()+ext))
	url, err := helpers.UploadImageToGCS(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	u.ProfilePhoto = url
	if err := s.Repo.Update(u); err != nil {
		return "", err
	}
	return url, nil
}

type CreateUserInput struct {
	FullName string
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

// CreateUserAsAdmin provisions an account directly; admin-created
// accounts skip the email confirmation round-trip.
func (s *UserService) CreateUserAsAdmin(ctx context.Context, actor *entity.User, in CreateUserInput) (*entity.User, error) {
	if err := policy.Decide(actor, nil, policy.ActionCreateUserAsAdmin).Err(); err != nil {
		return nil, err
	}
	existing, err := s.Repo.GetByEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.E(apperr.KindAlreadyExists, "user already exists")
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:      in.Email,
		Username:   in.Username,
		FullName:   in.FullName,
		Password:   hash,
		IsVerified: true,
		IsAdmin:    in.IsAdmin,
	}
	if err := s.Repo.Create(u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUserRole flips the admin flag on the target account.
func (s *UserService) UpdateUserRole(ctx context.Context, actor *entity.User, targetID string, isAdmin bool) (*entity.User, error) {
	if err := policy.Decide(actor, nil, policy.ActionUpdateUserRole).Err(); err != nil {
		return nil, err
	}
	u, err := s.Repo.GetByID(targetID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.E(apperr.KindNotFound, "user not found")
	}
	u.IsAdmin = isAdmin
	if err := s.Repo.Update(u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes the target account permanently.
func (s *UserService) DeleteUser(ctx context.Context, actor *entity.User, targetID string) error {
	if err := policy.Decide(actor, nil, policy.ActionDeleteUser).Err(); err != nil {
		return err
	}
	u, err := s.Repo.GetByID(targetID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.E(apperr.KindNotFound, "user not found")
	}
	return s.Repo.Delete(targetID)
}

// ResolveActor loads the acting identity; "" resolves to an anonymous
// actor (nil) for the policy.
func (s *UserService) ResolveActor(userID string) (*entity.User, error) {
	if userID == "" {
		return nil, nil
	}
	u, err := s.Repo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) publishEmail(ctx context.Context, job mailer.EmailJob) error {
	if s.Cfg != nil && !s.Cfg.MailSendEnabled {
		return nil
	}
	if s.Pub == nil {
		return nil
	}
	return s.Pub.PublishJSON(ctx, job)
}
