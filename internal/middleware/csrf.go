package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

// CSRFMiddleware provides CSRF protection functionality
type CSRFMiddleware struct {
	store  sessions.Store
	logger *slog.Logger
}

// NewCSRFMiddleware creates a new CSRF middleware
func NewCSRFMiddleware(store sessions.Store, logger *slog.Logger) *CSRFMiddleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CSRFMiddleware{
		store:  store,
		logger: logger,
	}
}

// EnsureCSRFToken makes sure the session carries a token and exposes it to templates
func (m *CSRFMiddleware) EnsureCSRFToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.store.Get(r, SessionName)
		if err != nil {
			m.logger.Debug("session unavailable for csrf token", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		token, ok := session.Values[sessionCSRFKey].(string)
		if !ok || token == "" {
			token = GenerateCSRFToken()
			session.Values[sessionCSRFKey] = token
			if err := session.Save(r, w); err != nil {
				m.logger.Error("failed to save csrf token", "error", err)
			}
		}

		ctx := context.WithValue(r.Context(), csrfContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFProtection rejects state-changing requests whose token does not match the session
func (m *CSRFMiddleware) CSRFProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.store.Get(r, SessionName)
		if err != nil {
			writeAlert(w, r, http.StatusForbidden, "Your session has expired. Please refresh the page and try again.")
			return
		}

		sessionToken, _ := session.Values[sessionCSRFKey].(string)
		requestToken := r.Header.Get("X-CSRF-Token")
		if requestToken == "" {
			requestToken = r.FormValue("csrf_token")
		}

		if sessionToken == "" || subtle.ConstantTimeCompare([]byte(requestToken), []byte(sessionToken)) != 1 {
			m.logger.Warn("csrf token mismatch", "method", r.Method, "path", r.URL.Path)
			writeAlert(w, r, http.StatusForbidden, "Security token mismatch. Please refresh the page and try again.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CSRFTokenFromContext returns the token set by EnsureCSRFToken
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfContextKey).(string)
	return token
}

// randomSource feeds CSRF tokens
var randomSource io.Reader = rand.Reader

// GenerateCSRFToken generates a CSRF token for the session.
// It panics if the random source fails; a guessable token is never issued.
func GenerateCSRFToken() string {
	tokenBytes := make([]byte, 32)
	if _, err := io.ReadFull(randomSource, tokenBytes); err != nil {
		panic(fmt.Sprintf("csrf: reading random bytes: %v", err))
	}
	return hex.EncodeToString(tokenBytes)
}
