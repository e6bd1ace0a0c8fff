package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/authkit/backend/internal/config"
	"github.com/authkit/backend/internal/model"
	"github.com/authkit/backend/internal/service"
	"github.com/authkit/backend/internal/token"
)

type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uuid.UUID]*model.User)}
}

func (m *memStore) CreateUser(_ context.Context, email, passwordHash string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	user := &model.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash}
	m.users[user.ID] = user
	copied := *user
	return &copied, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, userID uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) UpdateRefreshToken(_ context.Context, userID uuid.UUID, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.RefreshToken = refreshToken
	}
	return nil
}

func (m *memStore) SwapRefreshToken(_ context.Context, userID uuid.UUID, oldToken, newToken string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.RefreshToken != oldToken {
		return false, nil
	}
	u.RefreshToken = newToken
	return true, nil
}

func (m *memStore) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

type memMailer struct {
	mu   sync.Mutex
	html []string
	fail bool
}

func (m *memMailer) Send(_ context.Context, _, _, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("relay unavailable")
	}
	m.html = append(m.html, html)
	return nil
}

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

func newTestRouter(t *testing.T, store *memStore, mailer *memMailer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService, err := service.NewAuthService(store, config.AuthConfig{
		AccessTokenSecret:  testAccessSecret,
		RefreshTokenSecret: testRefreshSecret,
		AccessTokenTTL:     "15m",
		RefreshTokenTTL:    "2160h",
	})
	if err != nil {
		t.Fatalf("NewAuthService error: %v", err)
	}
	resetService := service.NewResetService(store, mailer, "http://localhost:3000")

	h := NewAuthHandler(authService, resetService)
	r := gin.New()
	auth := r.Group("/auth")
	auth.GET("", h.Index)
	auth.POST("/signup", h.SignUp)
	auth.POST("/signin", h.SignIn)
	auth.POST("/logout", h.Logout)
	auth.POST("/refresh_token", h.Refresh)
	auth.GET("/protected", AuthMiddleware(store, []byte(testAccessSecret)), h.Protected)
	auth.POST("/send-password-reset-email", h.SendPasswordResetEmail)
	auth.POST("/reset-password/:id/:token", h.ResetPassword)
	return r
}

func doJSON(r *gin.Engine, method, path, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	r.ServeHTTP(w, req)
	return w
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "refreshtoken" {
			return c
		}
	}
	t.Fatalf("no refreshtoken cookie in response")
	return nil
}

func TestSignUpThenDuplicate(t *testing.T) {
	r := newTestRouter(t, newMemStore(), &memMailer{})

	w := doJSON(r, http.MethodPost, "/auth/signup", `{"email":"u@example.com","password":"correct-pass"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d (%s)", w.Code, w.Body)
	}

	w = doJSON(r, http.MethodPost, "/auth/signup", `{"email":"u@example.com","password":"correct-pass"}`, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d (%s)", w.Code, w.Body)
	}
}

func TestSignInSetsCookieAndReturnsAccessToken(t *testing.T) {
	r := newTestRouter(t, newMemStore(), &memMailer{})

	doJSON(r, http.MethodPost, "/auth/signup", `{"email":"u@example.com","password":"correct-pass"}`, nil)
	w := doJSON(r, http.MethodPost, "/auth/signin", `{"email":"u@example.com","password":"correct-pass"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d (%s)", w.Code, w.Body)
	}

	var resp model.SignInResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal signin response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("signin response missing accesstoken")
	}

	cookie := refreshCookie(t, w)
	if !cookie.HttpOnly {
		t.Fatalf("refreshtoken cookie must be HttpOnly")
	}
	if cookie.Value == "" {
		t.Fatalf("refreshtoken cookie is empty")
	}
}

func TestSignInFailuresIndistinguishable(t *testing.T) {
	r := newTestRouter(t, newMemStore(), &memMailer{})

	doJSON(r, http.MethodPost, "/auth/signup", `{"email":"u@example.com","password":"correct-pass"}`, nil)

	unknown := doJSON(r, http.MethodPost, "/auth/signin", `{"email":"nobody@example.com","password":"correct-pass"}`, nil)
	badPass := doJSON(r, http.MethodPost, "/auth/signin", `{"email":"u@example.com","password":"wrong-pass-1"}`, nil)

	if unknown.Code != http.StatusUnauthorized || badPass.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both failures, got %d and %d", unknown.Code, badPass.Code)
	}
	if unknown.Body.String() != badPass.Body.String() {
		t.Fatalf("failure bodies differ: %s vs %s", unknown.Body, badPass.Body)
	}
}

func TestProtectedRefreshScenario(t *testing.T) {
	store := newMemStore()
	r := newTestRouter(t, store, &memMailer{})

	doJSON(r, http.MethodPost, "/auth/signup", `{"email":"u@example.com","password":"correct-pass"}`, nil)
	signin := doJSON(r, http.MethodPost, "/auth/signin", `{"email":"u@example.com","password":"correct-pass"}`, nil)

	var signinResp model.SignInResponse
	if err := json.Unmarshal(signin.Body.Bytes(), &signinResp); err != nil {
		t.Fatalf("unmarshal signin response: %v", err)
	}
	cookie := refreshCookie(t, signin)

	// Fresh access token reaches the protected route.
	w := doJSON(r, http.MethodGet, "/auth/protected", "", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signinResp.AccessToken)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("protected: expected 200, got %d (%s)", w.Code, w.Body)
	}
	var prot model.ProtectedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &prot); err != nil {
		t.Fatalf("unmarshal protected response: %v", err)
	}
	if prot.User == nil || prot.User.Email != "u@example.com" {
		t.Fatalf("protected did not return the signed-in user: %+v", prot.User)
	}

	// An access token past its expiry is rejected.
	var userID uuid.UUID
	for id := range store.users {
		userID = id
	}
	expired, err := token.Issue(userID.String(), []byte(testAccessSecret), -time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	w = doJSON(r, http.MethodGet, "/auth/protected", "", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+expired)
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expired access token: expected 401, got %d", w.Code)
	}

	// The refresh cookie yields a new working pair.
	refresh := doJSON(r, http.MethodPost, "/auth/refresh_token", "", func(req *http.Request) {
		req.AddCookie(cookie)
	})
	if refresh.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%s)", refresh.Code, refresh.Body)
	}
	var refreshResp model.RefreshResponse
	if err := json.Unmarshal(refresh.Body.Bytes(), &refreshResp); err != nil {
		t.Fatalf("unmarshal refresh response: %v", err)
	}
	if refreshResp.AccessToken == "" {
		t.Fatalf("refresh response missing accessToken")
	}
	rotated := refreshCookie(t, refresh)
	if rotated.Value == cookie.Value {
		t.Fatalf("refresh cookie was not rotated")
	}

	w = doJSON(r, http.MethodGet, "/auth/protected", "", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+refreshResp.AccessToken)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("protected after refresh: expected 200, got %d (%s)", w.Code, w.Body)
	}

	// The pre-rotation cookie is stale now.
	replay := doJSON(r, http.MethodPost, "/auth/refresh_token", "", func(req *http.Request) {
		req.AddCookie(cookie)
	})
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh cookie: expected 401, got %d (%s)", replay.Code, replay.Body)
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	r := newTestRouter(t, newMemStore(), &memMailer{})

	w := doJSON(r, http.MethodPost, "/auth/refresh_token", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%s)", w.Code, w.Body)
	}
	if !strings.Contains(w.Body.String(), "No refresh token!") {
		t.Fatalf("unexpected body: %s", w.Body)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r := newTestRouter(t, newMemStore(), &memMailer{})

	w := doJSON(r, http.MethodPost, "/auth/logout", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	cookie := refreshCookie(t, w)
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("logout did not clear the cookie: value=%q maxAge=%d", cookie.Value, cookie.MaxAge)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	store := newMemStore()
	mailer := &memMailer{}
	r := newTestRouter(t, store, mailer)

	doJSON(r, http.MethodPost, "/auth/signup", `{"email":"u@example.com","password":"correct-pass"}`, nil)

	w := doJSON(r, http.MethodPost, "/auth/send-password-reset-email", `{"email":"u@example.com"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("send reset mail: expected 200, got %d (%s)", w.Code, w.Body)
	}
	if len(mailer.html) != 1 {
		t.Fatalf("expected 1 reset mail, got %d", len(mailer.html))
	}

	// Pull id and token out of the mailed URL.
	html := mailer.html[0]
	start := strings.Index(html, "/reset-password/")
	rest := html[start+len("/reset-password/"):]
	end := strings.IndexAny(rest, `"<`)
	parts := strings.SplitN(rest[:end], "/", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed reset URL in mail: %q", rest[:end])
	}
	id, resetToken := parts[0], parts[1]

	w = doJSON(r, http.MethodPost, "/auth/reset-password/"+id+"/"+resetToken, `{"newPassword":"brand-new-pass"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset confirmation: expected 200, got %d (%s)", w.Code, w.Body)
	}

	// Old password no longer signs in, new one does.
	if w := doJSON(r, http.MethodPost, "/auth/signin", `{"email":"u@example.com","password":"correct-pass"}`, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("old password: expected 401, got %d", w.Code)
	}
	if w := doJSON(r, http.MethodPost, "/auth/signin", `{"email":"u@example.com","password":"brand-new-pass"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("new password: expected 200, got %d (%s)", w.Code, w.Body)
	}

	// The used token fails permanently.
	w = doJSON(r, http.MethodPost, "/auth/reset-password/"+id+"/"+resetToken, `{"newPassword":"another-new-pass"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("reused reset token: expected 401, got %d (%s)", w.Code, w.Body)
	}
}

func TestResetRequestUnknownEmail(t *testing.T) {
	r := newTestRouter(t, newMemStore(), &memMailer{})

	w := doJSON(r, http.MethodPost, "/auth/send-password-reset-email", `{"email":"nobody@example.com"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", w.Code, w.Body)
	}
}

func TestResetMailRelayFailure(t *testing.T) {
	store := newMemStore()
	mailer := &memMailer{fail: true}
	r := newTestRouter(t, store, mailer)

	doJSON(r, http.MethodPost, "/auth/signup", `{"email":"u@example.com","password":"correct-pass"}`, nil)

	w := doJSON(r, http.MethodPost, "/auth/send-password-reset-email", `{"email":"u@example.com"}`, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d (%s)", w.Code, w.Body)
	}
}
