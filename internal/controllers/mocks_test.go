package controllers

import (
	"context"

	"tickets-web/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of CartBackend and BookingBackend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetCart(ctx context.Context, token string) ([]models.CartLine, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CartLine), args.Error(1)
}

func (m *MockBackend) DeleteCartLine(ctx context.Context, token string, id int64) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

func (m *MockBackend) Checkout(ctx context.Context, token string, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutResult), args.Error(1)
}

func (m *MockBackend) GetBooking(ctx context.Context, token string, code string) (*models.Booking, error) {
	args := m.Called(ctx, token, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func line(id int64, units int64) models.CartLine {
	return models.CartLine{
		ID:          id,
		Destination: models.Destination{Name: "Destination"},
		VisitDate:   "2026-11-02",
		Quantity:    1,
		TotalPrice:  models.AmountFromUnits(units),
	}
}

func always(answer bool) Confirmer {
	return ConfirmFunc(func(string) bool { return answer })
}
