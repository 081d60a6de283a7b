package pages

import (
	"bytes"
	"context"
	"testing"

	"tickets-web/internal/controllers"
	"tickets-web/internal/models"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func sampleCart() controllers.CartView {
	lines := []models.CartLine{
		{ID: 1, Destination: models.Destination{Name: "Kuta Beach"}, VisitDate: "2026-11-02", Quantity: 2, TotalPrice: models.AmountFromUnits(150000)},
		{ID: 2, Destination: models.Destination{Name: "Borobudur", ImageURL: "destinations/borobudur.jpg"}, VisitDate: "2026-11-03", Quantity: 1, TotalPrice: models.AmountFromUnits(75000)},
	}
	return controllers.CartView{
		State:         controllers.StateReady,
		Lines:         lines,
		Selected:      map[int64]bool{1: true, 2: true},
		SelectedCount: 2,
		PaymentMethod: models.PaymentTransfer,
		Loaded:        true,
		Total:         models.AmountFromUnits(225000),
	}
}

func TestCartPage(t *testing.T) {
	page := Page{CSRFToken: "csrf-abc", Email: "demo@example.com", StorageURL: "http://127.0.0.1:8000/storage"}
	html := render(t, CartPage(NewCartPageData(page, sampleCart())))

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "Kuta Beach")
	assert.Contains(t, html, "Rp 150.000")
	assert.Contains(t, html, "Rp 225.000")
	assert.Contains(t, html, "Total items (2)")
	assert.Contains(t, html, "http://127.0.0.1:8000/storage/destinations/borobudur.jpg")
	assert.Contains(t, html, `value="transfer" checked`)
	assert.Contains(t, html, "Bank Transfer")
	assert.Contains(t, html, `hx-confirm="Remove this item?"`)
	assert.Contains(t, html, `value="csrf-abc"`)
	assert.NotContains(t, html, "disabled>")
}

func TestCartItemsPartial(t *testing.T) {
	t.Run("no selection disables checkout", func(t *testing.T) {
		cart := sampleCart()
		cart.Selected = map[int64]bool{}
		cart.SelectedCount = 0
		cart.Total = 0

		html := render(t, CartItemsPartial(NewCartPageData(Page{Flashes: []string{"Select at least one item!"}}, cart)))

		assert.NotContains(t, html, "<!DOCTYPE html>")
		assert.Contains(t, html, `id="cart"`)
		assert.Contains(t, html, "Select at least one item!")
		assert.Contains(t, html, " disabled>")
		assert.Contains(t, html, "Rp 0")
	})

	t.Run("empty cart", func(t *testing.T) {
		html := render(t, CartItemsPartial(NewCartPageData(Page{}, controllers.CartView{State: controllers.StateEmpty, Loaded: true})))
		assert.Contains(t, html, "Your cart is empty.")
		assert.Contains(t, html, "Browse destinations")
	})
}

func TestTicketPage(t *testing.T) {
	booking := &models.Booking{
		BookingCode: "TRX123",
		QRString:    "payload",
		GrandTotal:  models.AmountFromUnits(225000),
		Details: []models.BookingDetail{
			{Destination: models.Destination{Name: "Kuta Beach", ImageURL: "https://cdn.example.com/kuta.jpg"}, VisitDate: "2026-11-02", Quantity: 2},
		},
	}

	html := render(t, TicketPage(TicketPageData{Booking: booking, QR: "data:image/png;base64,AAAA"}))

	assert.Contains(t, html, "<title>Ticket TRX123</title>")
	assert.Contains(t, html, `src="data:image/png;base64,AAAA"`)
	assert.Contains(t, html, "2 people")
	assert.Contains(t, html, "Rp 225.000")
	assert.Contains(t, html, "/tickets/TRX123/qr.png")
	assert.Contains(t, html, "https://cdn.example.com/kuta.jpg")
}

func TestTicketNotFoundPage(t *testing.T) {
	html := render(t, TicketNotFoundPage(NotFoundData{Code: "<script>"}))
	assert.Contains(t, html, "Ticket not found")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestLoginPage(t *testing.T) {
	html := render(t, LoginPage(LoginData{Error: "Invalid email or password.", FormEmail: "demo@example.com", Next: "/cart"}))
	assert.Contains(t, html, "Invalid email or password.")
	assert.Contains(t, html, `value="demo@example.com"`)
	assert.Contains(t, html, `name="next" value="/cart"`)
	assert.Contains(t, html, "Sign in")
}

func TestConfirmPage(t *testing.T) {
	html := render(t, ConfirmPage(ConfirmData{Prompt: "Remove this item?", Action: "/cart/items/2/delete", CancelURL: "/cart"}))
	assert.Contains(t, html, "Remove this item?")
	assert.Contains(t, html, `action="/cart/items/2/delete"`)
	assert.Contains(t, html, `name="confirm" value="yes"`)
}
