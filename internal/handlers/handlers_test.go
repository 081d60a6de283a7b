package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tickets-web/internal/config"
	"tickets-web/internal/middleware"
	"tickets-web/internal/models"
	"tickets-web/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *httptest.Server
	client *http.Client
	cart   *CartHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithBackend(t, services.NewMockBackendService())
}

func newTestEnvWithBackend(t *testing.T, backend services.BackendService) *testEnv {
	t.Helper()

	store := middleware.NewCookieStore(config.SessionConfig{Secret: "test-secret-key-32-bytes-long!!!", MaxAge: 3600})
	sm := middleware.NewSessionMiddleware(store, nil)

	cart := NewCartHandler(backend, sm, CartHandlerConfig{
		StorageURL: "http://127.0.0.1:8000/storage",
		ViewTTL:    time.Minute,
	}, nil)
	t.Cleanup(cart.Close)
	tickets := NewTicketHandler(backend, sm, "http://127.0.0.1:8000/storage", nil)
	auth := NewAuthHandler(backend, sm, nil)

	r := chi.NewRouter()
	r.Use(sm.LoadCredential)
	r.Get("/health", Health)
	r.Get("/login", auth.LoginPage)
	r.Post("/login", auth.LoginSubmit)
	r.Post("/logout", auth.Logout)
	r.Get("/cart", cart.CartPage)
	r.Post("/cart/items/{id}/toggle", cart.ToggleSelection)
	r.Post("/cart/items/{id}/delete", cart.DeleteLine)
	r.Post("/cart/payment-method", cart.SetPaymentMethod)
	r.Post("/checkout", cart.Checkout)
	r.Get("/tickets/{code}", tickets.TicketPage)
	r.Get("/tickets/{code}/qr.png", tickets.DownloadQR)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cart: cart,
	}
}

// oddCodeBackend issues a booking code that needs escaping in a URL path
type oddCodeBackend struct {
	*services.MockBackendService
}

const oddCode = "TRX/9?x#y"

func (b oddCodeBackend) Checkout(ctx context.Context, token string, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	if _, err := b.MockBackendService.Checkout(ctx, token, req); err != nil {
		return nil, err
	}
	b.AddBooking(token, models.Booking{
		BookingCode: oddCode,
		QRString:    oddCode,
		GrandTotal:  models.AmountFromUnits(75000),
		Details: []models.BookingDetail{
			{Destination: models.Destination{ID: 2, Name: "Borobudur Temple"}, VisitDate: "2026-11-05", Quantity: 1},
		},
	})
	return &models.CheckoutResult{BookingCode: oddCode}, nil
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values, htmx bool) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, _ := e.post(t, "/login", url.Values{
		"email":    {services.DemoEmail},
		"password": {services.DemoPassword},
	}, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/cart", resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","service":"tickets-web"}`, body)
}

func TestCartPage_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/cart")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Your cart is empty.")
	assert.Contains(t, body, "Sign in")
}

func TestCartPage_OnlySignedInViewsAreKept(t *testing.T) {
	env := newTestEnv(t)

	for range 3 {
		resp, _ := env.get(t, "/cart")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, 0, env.cart.views.Len())

	env.login(t)
	env.get(t, "/cart")
	env.get(t, "/cart")
	assert.Equal(t, 1, env.cart.views.Len(), "reopening the cart replaces the previous view")
}

func TestCartFlow_SelectCheckoutAndViewTicket(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, body := env.get(t, "/cart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Kuta Beach Sunset Tour")
	assert.Contains(t, body, "Borobudur Temple")
	assert.Contains(t, body, "http://127.0.0.1:8000/storage/destinations/kuta.jpg")
	assert.Contains(t, body, "Total items (0)")

	_, body = env.post(t, "/cart/items/1/toggle", nil, true)
	_, body = env.post(t, "/cart/items/2/toggle", nil, true)
	assert.NotContains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "Total items (2)")
	assert.Contains(t, body, "Rp 225.000")

	_, body = env.post(t, "/cart/items/1/toggle", nil, true)
	assert.Contains(t, body, "Total items (1)")
	assert.Contains(t, body, "Rp 75.000")

	resp, _ = env.post(t, "/checkout", nil, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/tickets/TRX123", resp.Header.Get("HX-Redirect"))

	resp, body = env.get(t, "/tickets/TRX123")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "TRX123")
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Contains(t, body, "1 people")
	assert.Contains(t, body, "Rp 75.000")

	resp, body = env.get(t, "/tickets/TRX123/qr.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=ticket-TRX123.png`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))
}

func TestCheckout_EmptySelection(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.get(t, "/cart")

	resp, body := env.post(t, "/checkout", nil, true)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("HX-Redirect"))
	assert.Contains(t, body, "Select at least one item!")

	_, body = env.get(t, "/tickets/TRX123")
	assert.Contains(t, body, "Ticket not found", "no booking was created")
}

func TestCheckout_NonHTMXRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.get(t, "/cart")
	env.post(t, "/cart/items/1/toggle", nil, false)

	resp, _ := env.post(t, "/checkout", nil, false)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/tickets/TRX123", resp.Header.Get("Location"))
}

func TestDeleteLine(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.get(t, "/cart")
	env.post(t, "/cart/items/2/toggle", nil, true)

	t.Run("unconfirmed request asks first", func(t *testing.T) {
		resp, body := env.post(t, "/cart/items/2/delete", nil, false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Remove this item?")
		assert.Contains(t, body, `name="confirm" value="yes"`)
	})

	t.Run("confirmed request removes line and selection", func(t *testing.T) {
		_, body := env.post(t, "/cart/items/2/delete", url.Values{"confirm": {"yes"}}, true)
		assert.NotContains(t, body, "Borobudur Temple")
		assert.Contains(t, body, "Kuta Beach Sunset Tour")
		assert.Contains(t, body, "Total items (0)")
		assert.Contains(t, body, "Rp 0")
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := env.post(t, "/cart/items/abc/delete", url.Values{"confirm": {"yes"}}, true)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSetPaymentMethod(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.get(t, "/cart")

	_, body := env.post(t, "/cart/payment-method", url.Values{"payment_method": {"cod"}}, true)
	assert.Contains(t, body, `value="cod" checked`)

	resp, _ := env.post(t, "/cart/payment-method", url.Values{"payment_method": {"crypto"}}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCartAction_WithoutOpenView(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.post(t, "/cart/items/1/toggle", nil, true)
	assert.Equal(t, "/cart", resp.Header.Get("HX-Redirect"))

	resp, _ = env.post(t, "/checkout", nil, false)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))
}

func TestTicketPage(t *testing.T) {
	t.Run("anonymous is sent to login", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.get(t, "/tickets/TRX123")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login?next=%2Ftickets%2FTRX123", resp.Header.Get("Location"))
	})

	t.Run("unknown booking", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)
		resp, body := env.get(t, "/tickets/TRX999")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body, "Ticket not found")
		assert.Contains(t, body, "TRX999")

		resp, _ = env.get(t, "/tickets/TRX999/qr.png")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		env := newTestEnv(t)
		resp, body := env.post(t, "/login", url.Values{
			"email":    {services.DemoEmail},
			"password": {"nope"},
		}, false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, body, "Invalid email or password.")
		assert.Contains(t, body, `value="demo@example.com"`)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t)
		resp, body := env.post(t, "/login", url.Values{"email": {services.DemoEmail}}, false)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, body, "Email and password are required.")
	})

	t.Run("next is kept on this site", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.post(t, "/login", url.Values{
			"email":    {services.DemoEmail},
			"password": {services.DemoPassword},
			"next":     {"//evil.example.com"},
		}, false)
		assert.Equal(t, "/cart", resp.Header.Get("Location"))
	})

	t.Run("signed in users skip the form", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)
		resp, _ := env.get(t, "/login?next=/tickets/TRX1")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/tickets/TRX1", resp.Header.Get("Location"))
	})

	t.Run("logout forgets the credential", func(t *testing.T) {
		env := newTestEnv(t)
		env.login(t)

		resp, _ := env.post(t, "/logout", nil, false)
		assert.Equal(t, "/login", resp.Header.Get("Location"))

		_, body := env.get(t, "/cart")
		assert.Contains(t, body, "Your cart is empty.")
	})
}

func TestCheckout_BookingCodeIsEscapedInLinks(t *testing.T) {
	env := newTestEnvWithBackend(t, oddCodeBackend{services.NewMockBackendService()})
	env.login(t)
	env.get(t, "/cart")
	env.post(t, "/cart/items/2/toggle", nil, true)

	resp, _ := env.post(t, "/checkout", nil, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.Equal(t, "/tickets/TRX%2F9%3Fx%23y", location)

	resp, body := env.get(t, location)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `href="/tickets/TRX%2F9%3Fx%23y/qr.png"`)

	resp, body = env.get(t, location+"/qr.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))
}

func TestTicketPage_LoginRedirectKeepsEscapedCode(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/tickets/TRX%2F9")

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Ftickets%2FTRX%252F9", resp.Header.Get("Location"))
}
