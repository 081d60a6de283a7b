package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"tickets-web/internal/models"
)

// MockBackendService is an in-memory booking backend for demo mode and tests
type MockBackendService struct {
	mu       sync.Mutex
	users    map[string]string // email -> password
	tokens   map[string]string // token -> email
	carts    map[string][]models.CartLine
	bookings map[string]mockBooking
	nextCode int
}

type mockBooking struct {
	owner   string
	booking models.Booking
}

// DemoEmail and DemoPassword log into the seeded demo account
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "password"
	DemoToken    = "demo-token"
)

// NewMockBackendService creates a mock backend seeded with one demo user and cart
func NewMockBackendService() *MockBackendService {
	m := &MockBackendService{
		users:    map[string]string{DemoEmail: DemoPassword},
		tokens:   map[string]string{DemoToken: DemoEmail},
		carts:    make(map[string][]models.CartLine),
		bookings: make(map[string]mockBooking),
		nextCode: 123,
	}

	m.carts[DemoEmail] = []models.CartLine{
		{
			ID:          1,
			Destination: models.Destination{ID: 10, Name: "Kuta Beach Sunset Tour", ImageURL: "destinations/kuta.jpg"},
			VisitDate:   "2026-11-02",
			Quantity:    2,
			TotalPrice:  models.AmountFromUnits(150000),
		},
		{
			ID:          2,
			Destination: models.Destination{ID: 11, Name: "Borobudur Temple", ImageURL: ""},
			VisitDate:   "2026-11-05",
			Quantity:    1,
			TotalPrice:  models.AmountFromUnits(75000),
		},
	}

	return m
}

// AddUser registers a user with a fixed token and cart
func (m *MockBackendService) AddUser(email, password, token string, cart []models.CartLine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[email] = password
	m.tokens[token] = email
	m.carts[email] = append([]models.CartLine(nil), cart...)
}

// AddBooking stores a finalized booking owned by the user behind token
func (m *MockBackendService) AddBooking(token string, booking models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bookings[booking.BookingCode] = mockBooking{owner: m.tokens[token], booking: booking}
}

func (m *MockBackendService) GetCart(ctx context.Context, token string) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, err := m.authenticate(token)
	if err != nil {
		return nil, err
	}
	return append([]models.CartLine{}, m.carts[email]...), nil
}

func (m *MockBackendService) DeleteCartLine(ctx context.Context, token string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, err := m.authenticate(token)
	if err != nil {
		return err
	}

	lines := m.carts[email]
	for i, line := range lines {
		if line.ID == id {
			m.carts[email] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return &models.BusinessError{StatusCode: http.StatusNotFound, Message: "Cart item not found"}
}

func (m *MockBackendService) Checkout(ctx context.Context, token string, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, err := m.authenticate(token)
	if err != nil {
		return nil, err
	}
	if !req.PaymentMethod.IsValid() {
		return nil, &models.BusinessError{StatusCode: http.StatusUnprocessableEntity, Message: "The selected payment method is invalid."}
	}
	if len(req.CartIDs) == 0 {
		return nil, &models.BusinessError{StatusCode: http.StatusUnprocessableEntity, Message: "The cart ids field is required."}
	}

	wanted := make(map[int64]bool, len(req.CartIDs))
	for _, id := range req.CartIDs {
		wanted[id] = true
	}

	var (
		kept    []models.CartLine
		details []models.BookingDetail
		total   models.Amount
	)
	for _, line := range m.carts[email] {
		if !wanted[line.ID] {
			kept = append(kept, line)
			continue
		}
		delete(wanted, line.ID)
		total += line.TotalPrice
		details = append(details, models.BookingDetail{
			Destination: line.Destination,
			VisitDate:   line.VisitDate,
			Quantity:    line.Quantity,
		})
	}
	if len(wanted) > 0 {
		return nil, &models.BusinessError{StatusCode: http.StatusUnprocessableEntity, Message: "Some cart items are no longer available."}
	}

	code := fmt.Sprintf("TRX%d", m.nextCode)
	m.nextCode++

	m.carts[email] = kept
	m.bookings[code] = mockBooking{
		owner: email,
		booking: models.Booking{
			BookingCode: code,
			QRString:    fmt.Sprintf("BOOKING:%s|%s", code, req.PaymentMethod),
			GrandTotal:  total,
			Details:     details,
		},
	}

	return &models.CheckoutResult{BookingCode: code, Message: "Checkout successful"}, nil
}

func (m *MockBackendService) GetBooking(ctx context.Context, token string, code string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, err := m.authenticate(token)
	if err != nil {
		return nil, err
	}

	stored, ok := m.bookings[code]
	if !ok {
		return nil, &models.BusinessError{StatusCode: http.StatusNotFound, Message: "Booking not found"}
	}
	if stored.owner != email {
		return nil, &models.AuthError{StatusCode: http.StatusForbidden, Message: "This booking belongs to another account"}
	}

	booking := stored.booking
	booking.Details = append([]models.BookingDetail(nil), stored.booking.Details...)
	return &booking, nil
}

func (m *MockBackendService) Login(ctx context.Context, email, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stored, ok := m.users[email]; !ok || stored != password {
		return "", &models.AuthError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	for token, owner := range m.tokens {
		if owner == email {
			return token, nil
		}
	}

	token := fmt.Sprintf("token-%d", len(m.tokens)+1)
	m.tokens[token] = email
	return token, nil
}

func (m *MockBackendService) authenticate(token string) (string, error) {
	email, ok := m.tokens[token]
	if !ok {
		return "", &models.AuthError{StatusCode: http.StatusUnauthorized, Message: "Unauthenticated."}
	}
	return email, nil
}
