package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/authkit/backend/internal/config"
	"github.com/authkit/backend/internal/db"
	"github.com/authkit/backend/internal/model"
	"github.com/authkit/backend/internal/token"
)

const (
	refreshCookieName = "refreshtoken"
	minPasswordLength = 8
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrMisconfigured         = errors.New("auth config invalid")
	ErrUserExists            = errors.New("user already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrMissingToken          = errors.New("missing token")
	ErrInvalidToken          = errors.New("invalid token")
	ErrStaleToken            = errors.New("stale token")
	ErrUserNotFound          = errors.New("user not found")
	ErrNotificationFailure   = errors.New("notification failure")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
)

// UserStore is the slice of the user store the auth services consume.
// *db.Postgres satisfies it; tests use an in-memory fake.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string) error
	SwapRefreshToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) (bool, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

type AuthService struct {
	store         UserStore
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	cookieCfg     CookieConfig
}

func NewAuthService(store UserStore, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.AccessTokenSecret == "" {
		return nil, fmt.Errorf("%w: ACCESS_TOKEN_SECRET is required", ErrMisconfigured)
	}
	if cfg.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("%w: REFRESH_TOKEN_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ACCESS_TOKEN_TTL", ErrMisconfigured)
	}

	refreshTTL, err := time.ParseDuration(cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid REFRESH_TOKEN_TTL", ErrMisconfigured)
	}

	cookieSecure, err := parseBool(cfg.CookieSecure, false)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	return &AuthService{
		store:         store,
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		cookieCfg: CookieConfig{
			Name:     refreshCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cookieSecure,
			SameSite: cookieSameSite,
			MaxAge:   int(refreshTTL.Seconds()),
		},
	}, nil
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

func (s *AuthService) AccessSecret() []byte {
	return s.accessSecret
}

func (s *AuthService) SignUp(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err := s.store.CreateUser(ctx, email, string(hash)); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// SignIn verifies the password and mints a fresh token pair. Unknown
// email and wrong password are logged apart but reported identically,
// so responses never reveal which accounts exist.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, string, error) {
	if err := validateCredentials(email, password); err != nil {
		return "", "", ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			log.Printf("[Auth] sign-in rejected: unknown email")
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Printf("[Auth] sign-in rejected: password mismatch for user %s", user.ID)
		return "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.mintTokenPair(user.ID)
	if err != nil {
		return "", "", err
	}

	if err := s.store.UpdateRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the stored
// slot. A structurally valid token that no longer matches the slot, or
// that loses the compare-and-swap, is stale: it was already rotated out.
func (s *AuthService) Refresh(ctx context.Context, presented string) (string, string, error) {
	if strings.TrimSpace(presented) == "" {
		return "", "", ErrMissingToken
	}

	subject, err := token.Verify(presented, s.refreshSecret)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return "", "", ErrUserNotFound
		}
		return "", "", err
	}

	if user.RefreshToken != presented {
		log.Printf("[Auth] refresh rejected: superseded token replayed for user %s", user.ID)
		return "", "", ErrStaleToken
	}

	accessToken, refreshToken, err := s.mintTokenPair(user.ID)
	if err != nil {
		return "", "", err
	}

	swapped, err := s.store.SwapRefreshToken(ctx, user.ID, presented, refreshToken)
	if err != nil {
		return "", "", err
	}
	if !swapped {
		return "", "", ErrStaleToken
	}

	return accessToken, refreshToken, nil
}

func (s *AuthService) mintTokenPair(userID uuid.UUID) (string, string, error) {
	accessToken, err := token.Issue(userID.String(), s.accessSecret, s.accessTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := token.Issue(userID.String(), s.refreshSecret, s.refreshTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)

	if len(email) < 3 || len(email) > 254 || !strings.Contains(email, "@") {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength || len(password) > 128 {
		return ErrInvalidInput
	}
	return nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteLaxMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, ErrInvalidInput
	}
}
