package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})
}

func TestCSRFProtection(t *testing.T) {
	store := newTestStore()
	csrf := NewCSRFMiddleware(store, nil)

	// Issue a token the way a rendered page would
	var token string
	issue := httptest.NewRecorder()
	csrf.EnsureCSRFToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = CSRFTokenFromContext(r.Context())
	})).ServeHTTP(issue, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Len(t, token, 64)

	handler := csrf.CSRFProtection(okHandler())

	t.Run("GET passes through", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("POST without token is rejected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, withCookies(httptest.NewRequest(http.MethodPost, "/checkout", nil), issue))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("HTMX POST with header token", func(t *testing.T) {
		req := withCookies(httptest.NewRequest(http.MethodPost, "/checkout", nil), issue)
		req.Header.Set("HX-Request", "true")
		req.Header.Set("X-CSRF-Token", token)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("form token", func(t *testing.T) {
		form := url.Values{"csrf_token": {token}}
		req := withCookies(httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(form.Encode())), issue)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("HTMX mismatch returns a fragment", func(t *testing.T) {
		req := withCookies(httptest.NewRequest(http.MethodPost, "/checkout", nil), issue)
		req.Header.Set("HX-Request", "true")
		req.Header.Set("X-CSRF-Token", "wrong")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Body.String(), "Security token mismatch")
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	})
}

func TestEnsureCSRFToken_ReusesSessionToken(t *testing.T) {
	store := newTestStore()
	csrf := NewCSRFMiddleware(store, nil)

	var tokens []string
	handler := csrf.EnsureCSRFToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, CSRFTokenFromContext(r.Context()))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/cart", nil))
	handler.ServeHTTP(httptest.NewRecorder(), withCookies(httptest.NewRequest(http.MethodGet, "/cart", nil), first))

	require.Len(t, tokens, 2)
	assert.NotEmpty(t, tokens[0])
	assert.Equal(t, tokens[0], tokens[1])
}

func TestGenerateCSRFToken(t *testing.T) {
	token1 := GenerateCSRFToken()
	token2 := GenerateCSRFToken()

	assert.Len(t, token1, 64)
	assert.NotEqual(t, token1, token2)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

func withRandomSource(t *testing.T, source io.Reader) {
	t.Helper()
	previous := randomSource
	randomSource = source
	t.Cleanup(func() { randomSource = previous })
}

func TestGenerateCSRFToken_RandomFailure(t *testing.T) {
	withRandomSource(t, failingReader{})

	assert.PanicsWithValue(t, "csrf: reading random bytes: entropy unavailable", func() {
		GenerateCSRFToken()
	})
}

func TestEnsureCSRFToken_RandomFailureIsNotServed(t *testing.T) {
	withRandomSource(t, failingReader{})
	csrf := NewCSRFMiddleware(newTestStore(), nil)

	reached := false
	handler := Recoverer(nil)(csrf.EnsureCSRFToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, reached)
	assert.Empty(t, rr.Result().Cookies())
}
