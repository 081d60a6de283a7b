package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"tickets-web/internal/config"
	"tickets-web/internal/controllers"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie session shared by every handler
const SessionName = "session"

const (
	sessionTokenKey = "token"
	sessionEmailKey = "email"
	sessionCSRFKey  = "csrf_token"
	sessionCartKey  = "cart_view"
)

type contextKey string

const (
	credentialContextKey contextKey = "credential"
	csrfContextKey       contextKey = "csrf_token"
)

// NewCookieStore creates the cookie store for the session.
// Cookies are Lax and HttpOnly; Secure follows SESSION_SECURE so plain HTTP works in development.
func NewCookieStore(cfg config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(cfg.MaxAge)
	return store
}

// SessionMiddleware reads and writes the bearer credential kept in the cookie session
type SessionMiddleware struct {
	store  sessions.Store
	logger *slog.Logger
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(store sessions.Store, logger *slog.Logger) *SessionMiddleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SessionMiddleware{
		store:  store,
		logger: logger,
	}
}

// LoadCredential resolves the session gate for the request.
// A missing or unreadable session resolves to the anonymous credential.
func (m *SessionMiddleware) LoadCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var credential controllers.Credential

		session, err := m.store.Get(r, SessionName)
		if err != nil {
			m.logger.Debug("discarding unreadable session", "error", err)
		} else if token, ok := session.Values[sessionTokenKey].(string); ok {
			credential.Token = token
		}

		next.ServeHTTP(w, r.WithContext(SetCredentialContext(r.Context(), credential)))
	})
}

// SignIn stores the bearer token issued by the backend
func (m *SessionMiddleware) SignIn(w http.ResponseWriter, r *http.Request, token, email string) error {
	session, _ := m.store.Get(r, SessionName)
	session.Values[sessionTokenKey] = token
	session.Values[sessionEmailKey] = email
	session.Values[sessionCSRFKey] = GenerateCSRFToken()
	return session.Save(r, w)
}

// SignOut forgets the credential and expires the cookie
func (m *SessionMiddleware) SignOut(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, SessionName)
	delete(session.Values, sessionTokenKey)
	delete(session.Values, sessionEmailKey)
	delete(session.Values, sessionCSRFKey)
	delete(session.Values, sessionCartKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Email returns the signed-in address, if any
func (m *SessionMiddleware) Email(r *http.Request) string {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return ""
	}
	email, _ := session.Values[sessionEmailKey].(string)
	return email
}

// CartViewID returns the id of the cart view opened by this browser
func (m *SessionMiddleware) CartViewID(r *http.Request) string {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return ""
	}
	id, _ := session.Values[sessionCartKey].(string)
	return id
}

// SetCartViewID remembers the cart view opened by this browser
func (m *SessionMiddleware) SetCartViewID(w http.ResponseWriter, r *http.Request, id string) error {
	session, _ := m.store.Get(r, SessionName)
	session.Values[sessionCartKey] = id
	return session.Save(r, w)
}

// AddFlash queues messages for the next rendered page
func (m *SessionMiddleware) AddFlash(w http.ResponseWriter, r *http.Request, messages ...string) {
	if len(messages) == 0 {
		return
	}
	session, _ := m.store.Get(r, SessionName)
	for _, message := range messages {
		session.AddFlash(message)
	}
	if err := session.Save(r, w); err != nil {
		m.logger.Error("failed to save flash messages", "error", err)
	}
}

// Flashes pops the queued messages
func (m *SessionMiddleware) Flashes(w http.ResponseWriter, r *http.Request) []string {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return nil
	}
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(r, w); err != nil {
		m.logger.Error("failed to clear flash messages", "error", err)
	}

	messages := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}

// GetCredentialFromContext retrieves the credential resolved by LoadCredential
func GetCredentialFromContext(ctx context.Context) controllers.Credential {
	credential, _ := ctx.Value(credentialContextKey).(controllers.Credential)
	return credential
}

// GateFromContext returns a session gate resolved to the request credential
func GateFromContext(ctx context.Context) controllers.SessionGate {
	return controllers.ResolvedGate(GetCredentialFromContext(ctx))
}

// SetCredentialContext sets the credential in the context
func SetCredentialContext(ctx context.Context, credential controllers.Credential) context.Context {
	return context.WithValue(ctx, credentialContextKey, credential)
}
