package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dkrylov/shoply/internal/auth"
	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/store"
	"github.com/go-chi/chi/v5"
)

// AuthHandler handles registration, login, and profile endpoints.
type AuthHandler struct {
	*Handler
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(base *Handler) *AuthHandler {
	return &AuthHandler{Handler: base}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", auth.RequireAuth(h.Logout))
		r.Get("/profile", auth.RequireAuth(h.Profile))
	})
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		Fail(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user := &domain.User{Email: req.Email, Name: req.Name}
	if err := user.SetPassword(req.Password); err != nil {
		logHandlerError("Failed to hash password", err)
		Fail(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			Fail(w, http.StatusBadRequest, "Email already registered")
			return
		}
		logHandlerError("Failed to create user", err)
		Fail(w, http.StatusInternalServerError, "registration failed")
		return
	}

	slog.Info("User registered", "user_id", user.ID, "email", user.Email)
	JSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Registration successful",
		"user":    user,
	})
}

// Login verifies credentials and starts a cookie session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	user, err := h.repo.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		logHandlerError("Failed to look up user", err)
		Fail(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		Fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	session, err := auth.StartSession(r.Context(), h.repo, user.ID, h.cfg.SessionTTL)
	if err != nil {
		logHandlerError("Failed to start session", err)
		Fail(w, http.StatusInternalServerError, "login failed")
		return
	}
	auth.SetSessionCookie(w, session, h.cfg.IsDevelopment())

	slog.Info("User logged in", "user_id", user.ID)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    user,
	})
}

// Logout ends the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.repo.DeleteAuthSession(r.Context(), cookie.Value); err != nil {
			logHandlerError("Failed to delete session", err)
		}
	}
	auth.ClearSessionCookie(w, h.cfg.IsDevelopment())

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Profile returns the authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}
