package handlers

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"tickets-web/internal/middleware"
	"tickets-web/web/templates/pages"

	"github.com/a-h/templ"
)

// pageContext builds the parts every full page shares
type pageContext struct {
	sessions   *middleware.SessionMiddleware
	storageURL string
}

// page collects the CSRF token, the signed-in email, and pending flash
// messages followed by any extra messages raised during this request
func (p pageContext) page(w http.ResponseWriter, r *http.Request, messages ...string) pages.Page {
	return pages.Page{
		CSRFToken:  middleware.CSRFTokenFromContext(r.Context()),
		Email:      p.sessions.Email(r),
		Flashes:    append(p.sessions.Flashes(w, r), messages...),
		StorageURL: p.storageURL,
	}
}

// render writes component with status, or a 500 if rendering fails
func render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, component templ.Component) {
	var buf bytes.Buffer
	if err := component.Render(r.Context(), &buf); err != nil {
		logger.ErrorContext(r.Context(), "failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// handleRedirect handles redirects for both HTMX and regular requests
func handleRedirect(w http.ResponseWriter, r *http.Request, target string, statusCode int) {
	if middleware.IsHTMXRequest(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
	} else {
		http.Redirect(w, r, target, statusCode)
	}
}

// loginURL sends the user to sign in and back to next afterwards
func loginURL(next string) string {
	if next == "" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// safeNext keeps post-login redirects on this site
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/cart"
	}
	return next
}
