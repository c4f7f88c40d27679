package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkrylov/shoply/internal/auth"
	"github.com/dkrylov/shoply/internal/config"
	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/store"
	"github.com/go-chi/chi/v5"
)

type apiFixture struct {
	router chi.Router
	repo   store.Repository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	cfg := &config.Config{
		Port:           "8080",
		DBPath:         "ignored",
		SessionTTL:     time.Hour,
		CurrencySymbol: "$",
	}

	base := NewHandler(repo, cfg)
	r := chi.NewRouter()
	r.Use(auth.Middleware(repo))
	NewAuthHandler(base).RegisterRoutes(r)
	NewProductHandler(base).RegisterRoutes(r)
	NewOrderHandler(base).RegisterRoutes(r)

	return &apiFixture{router: r, repo: repo}
}

// do sends a JSON request through the router, attaching cookies if given.
func (f *apiFixture) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) registerAndLogin(t *testing.T, email string) []*http.Cookie {
	t.Helper()

	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email": email, "password": "secret123", "name": "Tester",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d\n%s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": "secret123",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d\n%s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login set no session cookie")
	}
	return cookies
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body.String())
	}
	return body
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email": "a@example.com", "password": "", "name": "A",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := decodeBody(t, w)["message"]; got != "All fields are required" {
		t.Fatalf("message = %v", got)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	payload := map[string]string{"email": "a@example.com", "password": "pw", "name": "A"}

	if w := f.do(t, http.MethodPost, "/auth/register", payload, nil); w.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", w.Code)
	}
	w := f.do(t, http.MethodPost, "/auth/register", payload, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", w.Code)
	}
	if got := decodeBody(t, w)["message"]; got != "Email already registered" {
		t.Fatalf("message = %v", got)
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	w := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email": "  Mixed@Example.COM ", "password": "pw", "name": "A",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d", w.Code)
	}

	user, err := f.repo.GetUserByEmail(context.Background(), "mixed@example.com")
	if err != nil || user == nil {
		t.Fatalf("normalized email not stored: %+v, %v", user, err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.registerAndLogin(t, "a@example.com")

	w := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "a@example.com", "password": "wrong",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := decodeBody(t, w)["message"]; got != "Invalid email or password" {
		t.Fatalf("message = %v", got)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	if w := f.do(t, http.MethodGet, "/auth/profile", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous profile status = %d, want 401", w.Code)
	}

	cookies := f.registerAndLogin(t, "a@example.com")
	w := f.do(t, http.MethodGet, "/auth/profile", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("profile status = %d", w.Code)
	}
	body := decodeBody(t, w)
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "a@example.com" {
		t.Fatalf("profile body = %v", body)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash leaked in profile response")
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	cookies := f.registerAndLogin(t, "a@example.com")

	if w := f.do(t, http.MethodPost, "/auth/logout", nil, cookies); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	// The old cookie no longer authenticates.
	if w := f.do(t, http.MethodGet, "/auth/profile", nil, cookies); w.Code != http.StatusUnauthorized {
		t.Fatalf("profile after logout status = %d, want 401", w.Code)
	}
}

func TestExpiredSessionIsAnonymous(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	user := &domain.User{Email: "old@example.com", Name: "Old", PasswordHash: "x"}
	if err := f.repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	session := &domain.AuthSession{
		Token:     "expired-token",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := f.repo.CreateAuthSession(context.Background(), session); err != nil {
		t.Fatalf("CreateAuthSession failed: %v", err)
	}

	cookie := &http.Cookie{Name: auth.SessionCookieName, Value: "expired-token"}
	if w := f.do(t, http.MethodGet, "/auth/profile", nil, []*http.Cookie{cookie}); w.Code != http.StatusUnauthorized {
		t.Fatalf("expired session status = %d, want 401", w.Code)
	}
}
