package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/yoockh/yoohealth/internal/auth"
	"github.com/yoockh/yoohealth/internal/cache"
	"github.com/yoockh/yoohealth/internal/models"
	pgrepo "github.com/yoockh/yoohealth/internal/repositories/postgres"
	"github.com/yoockh/yoohealth/internal/storage"
	"github.com/yoockh/yoohealth/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxAvatarBytes  = 2 << 20
	avatarURLTTL    = time.Hour
	invalidLoginMsg = "invalid email or password"
)

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type AuthService interface {
	Signup(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	// Authenticate verifies a bearer token and rejects revoked ones.
	Authenticate(ctx context.Context, raw string) (*auth.Claims, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID, name string, avatarURL *string) (*models.User, error)
	UploadAvatar(ctx context.Context, userID, contentType string, size int64, r io.Reader) (*models.User, error)
}

type resetTicket struct {
	UserID string `json:"user_id"`
}

type authService struct {
	users    pgrepo.UserRepository
	tokens   *auth.Tokens
	cache    cache.Cache
	uploader storage.Uploader // optional
	signer   storage.Signer   // set when the uploader can sign URLs
	resetTTL time.Duration
	log      *logrus.Logger
	now      func() time.Time
}

func NewAuthService(users pgrepo.UserRepository, tokens *auth.Tokens, c cache.Cache, uploader storage.Uploader, resetTTL time.Duration, log *logrus.Logger) AuthService {
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	s := &authService{
		users:    users,
		tokens:   tokens,
		cache:    c,
		uploader: uploader,
		resetTTL: resetTTL,
		log:      log,
		now:      time.Now,
	}
	if sg, ok := uploader.(storage.Signer); ok {
		s.signer = sg
	}
	return s
}

func (s *authService) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	const op = "AuthService.Signup"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name is required", nil)
	}
	email, ok := utils.NormalizeEmail(email)
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid email is required", nil)
	}
	if reason, ok := utils.ValidatePassword(password); !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, reason, nil)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	now := s.now().UTC()
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    now,
		LastSignInAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, utils.ErrDuplicate) {
			return nil, utils.E(utils.CodeConflict, op, "an account with this email already exists", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}

	return s.issue(ctx, op, u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	const op = "AuthService.Login"

	email, ok := utils.NormalizeEmail(email)
	if !ok || password == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, invalidLoginMsg, nil)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, invalidLoginMsg, nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, invalidLoginMsg, nil)
	}

	now := s.now().UTC()
	if err := s.users.TouchSignIn(ctx, u.ID, now); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("failed to stamp sign-in time")
	} else {
		u.LastSignInAt = now
	}

	return s.issue(ctx, op, u)
}

func (s *authService) issue(ctx context.Context, op string, u *models.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(u)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to issue token", err)
	}
	return &AuthResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: s.present(ctx, u)}, nil
}

// present swaps a private storage reference in the avatar for a signed URL.
// The stored value is left untouched.
func (s *authService) present(ctx context.Context, u *models.User) *models.User {
	if u == nil || u.AvatarURL == nil || s.signer == nil {
		return u
	}
	if _, _, ok := storage.ParseRef(*u.AvatarURL); !ok {
		return u
	}
	url, err := s.signer.SignedGetURL(ctx, *u.AvatarURL, avatarURLTTL)
	if err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("failed to sign avatar url")
		return u
	}
	out := *u
	out.AvatarURL = &url
	return &out
}

func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	const op = "AuthService.Logout"

	if claims == nil || claims.ID == "" {
		return utils.E(utils.CodeUnauthorized, op, "not signed in", nil)
	}
	ttl := s.tokens.Remaining(claims)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.SetJSON(ctx, cache.RevokedTokenKey(claims.ID), true, ttl); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to revoke session", err)
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, raw string) (*auth.Claims, error) {
	const op = "AuthService.Authenticate"

	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid token", err)
	}

	var revoked bool
	hit, err := s.cache.GetJSON(ctx, cache.RevokedTokenKey(claims.ID), &revoked)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to verify session", err)
	}
	if hit && revoked {
		return nil, utils.E(utils.CodeUnauthorized, op, "session has been signed out", nil)
	}
	return claims, nil
}

// RequestPasswordReset never reveals whether the email has an account.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "AuthService.RequestPasswordReset"

	email, ok := utils.NormalizeEmail(email)
	if !ok {
		return utils.E(utils.CodeInvalidArgument, op, "a valid email is required", nil)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, utils.ErrNotFound) {
		return nil
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to load user", err)
	}

	token := uuid.NewString()
	if err := s.cache.SetJSON(ctx, cache.PasswordResetKey(token), resetTicket{UserID: u.ID}, s.resetTTL); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to create reset token", err)
	}

	// No mail transport: operators relay the token from debug logs. Info only
	// carries a prefix so the token cannot be replayed from routine logs.
	entry := s.log.WithFields(logrus.Fields{
		"user_id":    u.ID,
		"expires_in": s.resetTTL.String(),
	})
	entry.WithField("reset_token_prefix", token[:8]).Info("password reset requested")
	entry.WithField("reset_token", token).Debug("password reset token")
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "AuthService.ResetPassword"

	token = strings.TrimSpace(token)
	if token == "" {
		return utils.E(utils.CodeInvalidArgument, op, "reset token is required", nil)
	}
	if reason, ok := utils.ValidatePassword(newPassword); !ok {
		return utils.E(utils.CodeInvalidArgument, op, reason, nil)
	}

	var t resetTicket
	hit, err := s.cache.TakeJSON(ctx, cache.PasswordResetKey(token), &t)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to verify reset token", err)
	}
	if !hit || t.UserID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "reset token is invalid or expired", nil)
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, t.UserID, hash); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to update password", err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (*models.User, error) {
	const op = "AuthService.Me"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "not signed in", nil)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	return s.present(ctx, u), nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID, name string, avatarURL *string) (*models.User, error) {
	const op = "AuthService.UpdateProfile"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name is required", nil)
	}
	if err := s.users.UpdateProfile(ctx, userID, name, avatarURL); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to update profile", err)
	}
	return s.Me(ctx, userID)
}

func (s *authService) UploadAvatar(ctx context.Context, userID, contentType string, size int64, r io.Reader) (*models.User, error) {
	const op = "AuthService.UploadAvatar"

	if s.uploader == nil {
		return nil, utils.E(utils.CodeConfigMissing, op, "file storage is not configured", nil)
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct != "image/png" && ct != "image/jpeg" {
		return nil, utils.E(utils.CodeUnsupported, op, "avatar must be a PNG or JPEG image", nil)
	}
	if size <= 0 || size > MaxAvatarBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "avatar must be between 1 byte and 2MB", nil)
	}

	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	ref, err := s.uploader.Upload(ctx, storage.ObjectName("avatars", userID, uuid.NewString(), ct), ct, io.LimitReader(r, MaxAvatarBytes))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store avatar", err)
	}
	return s.UpdateProfile(ctx, userID, u.Name, &ref)
}
