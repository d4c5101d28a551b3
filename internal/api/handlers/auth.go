// Package handlers implements the /v1 HTTP handlers. Handlers decode and
// validate request DTOs, delegate to domain services, and shape responses
// into the standard envelope.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nimbus/internal/auth"
	"nimbus/internal/core"
	"nimbus/internal/types"
)

// CookieConfig holds session cookie attributes.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

// AuthHandler serves registration, login, and logout.
type AuthHandler struct {
	service   *auth.Service
	validator *core.Validator
	cookie    CookieConfig
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(service *auth.Service, validator *core.Validator, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{service: service, validator: validator, cookie: cookie, logger: logger}
}

// RegisterRoutes mounts the auth routes on the given router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
}

// RegisterRequest is the payload for POST /v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      *types.User `json:"user"`
	CSRFToken string      `json:"csrf_token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// HandleRegister creates a new account.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: user})
}

// HandleLogin verifies credentials, issues a session, and sets the session
// cookie. The CSRF token for the session is returned in the response body.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, session, err := h.service.Login(r.Context(),
		req.Username, req.Password,
		core.ExtractClientIP(r), r.UserAgent())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(session.ID, session.ExpiresAt))

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: loginResponse{
		User:      user,
		CSRFToken: session.CSRFToken,
		ExpiresAt: session.ExpiresAt,
	}})
}

// HandleLogout revokes the caller's session and clears the cookie. Logging
// out without a session cookie is a no-op success.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookie.Name)
	if err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	http.SetCookie(w, h.expiredCookie())

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{
		"message": "logged out",
	}})
}

func (h *AuthHandler) sessionCookie(sessionID string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  expiresAt,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
