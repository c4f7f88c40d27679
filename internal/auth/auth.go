// Package auth provides cookie-session authentication primitives.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/store"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "shoply_session"

type contextKey int

const (
	userKey contextKey = iota
)

// UserFromContext extracts the authenticated user from the request context.
// Returns nil for anonymous requests.
func UserFromContext(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userKey).(*domain.User); ok {
		return u
	}
	return nil
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// NewSessionToken generates an opaque session token.
func NewSessionToken() string {
	return uuid.NewString()
}

// StartSession creates a login session for the user and returns it.
func StartSession(ctx context.Context, repo store.Repository, userID int64, ttl time.Duration) (*domain.AuthSession, error) {
	session := &domain.AuthSession{
		Token:     NewSessionToken(),
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := repo.CreateAuthSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SetSessionCookie attaches the session cookie to the response.
func SetSessionCookie(w http.ResponseWriter, session *domain.AuthSession, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// ClearSessionCookie removes the session cookie from the client.
func ClearSessionCookie(w http.ResponseWriter, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware resolves the session cookie into an authenticated user on
// the request context. Requests without a valid session pass through
// anonymously; handlers that need a user wrap with RequireAuth.
func Middleware(repo store.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			session, err := repo.GetAuthSession(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("Failed to load auth session", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil || session.Expired() {
				next.ServeHTTP(w, r)
				return
			}

			user, err := repo.GetUser(r.Context(), session.UserID)
			if err != nil || user == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"authentication required"}`))
			return
		}
		next(w, r)
	}
}

// StartSessionSweeper periodically removes expired login sessions until
// the context is cancelled.
func StartSessionSweeper(ctx context.Context, repo store.Repository, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := repo.DeleteExpiredAuthSessions(ctx)
				if err != nil {
					slog.Error("Failed to sweep expired sessions", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Expired auth sessions removed", "count", deleted)
				}
			}
		}
	}()
}
