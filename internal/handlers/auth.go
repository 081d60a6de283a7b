package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tickets-web/internal/controllers"
	"tickets-web/internal/middleware"
	"tickets-web/internal/models"
	"tickets-web/internal/services"
	"tickets-web/web/templates/pages"
)

const msgInvalidCredentials = "Invalid email or password."

// AuthHandler exchanges credentials for a backend bearer token
type AuthHandler struct {
	backend  services.BackendService
	sessions *middleware.SessionMiddleware
	pages    pageContext
	logger   *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(backend services.BackendService, sessions *middleware.SessionMiddleware, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthHandler{
		backend:  backend,
		sessions: sessions,
		pages:    pageContext{sessions: sessions},
		logger:   logger,
	}
}

// LoginPage renders the login form
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))

	// Already signed in
	if middleware.GetCredentialFromContext(r.Context()).Present() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	render(w, r, h.logger, http.StatusOK, pages.LoginPage(pages.LoginData{
		Page: h.pages.page(w, r),
		Next: next,
	}))
}

// LoginSubmit handles login form submission
func (h *AuthHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	next := safeNext(r.FormValue("next"))

	fail := func(status int, message string) {
		render(w, r, h.logger, status, pages.LoginPage(pages.LoginData{
			Page:      h.pages.page(w, r),
			Error:     message,
			FormEmail: email,
			Next:      next,
		}))
	}

	if email == "" || password == "" {
		fail(http.StatusUnprocessableEntity, "Email and password are required.")
		return
	}

	token, err := h.backend.Login(r.Context(), email, password)
	switch {
	case err == nil:
	case models.IsAuthFailure(err):
		h.logger.Info("login rejected")
		fail(http.StatusUnauthorized, msgInvalidCredentials)
		return
	case errors.Is(err, models.ErrTransport):
		h.logger.Warn("login failed, backend unreachable", "error", err)
		fail(http.StatusBadGateway, controllers.MsgConnectionError)
		return
	default:
		message, ok := models.BusinessMessage(err)
		if !ok || message == "" {
			message = msgInvalidCredentials
		}
		fail(http.StatusUnprocessableEntity, message)
		return
	}

	if err := h.sessions.SignIn(w, r, token, email); err != nil {
		h.logger.Error("failed to save session", "error", err)
		http.Error(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}

	handleRedirect(w, r, next, http.StatusSeeOther)
}

// Logout clears the credential
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		h.logger.Error("failed to clear session", "error", err)
	}
	handleRedirect(w, r, "/login", http.StatusSeeOther)
}
