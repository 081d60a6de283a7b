package services

import (
	"context"

	"tickets-web/internal/models"
)

// BackendService defines the booking backend HTTP API consumed by the frontend
type BackendService interface {
	GetCart(ctx context.Context, token string) ([]models.CartLine, error)
	DeleteCartLine(ctx context.Context, token string, id int64) error
	Checkout(ctx context.Context, token string, req *models.CheckoutRequest) (*models.CheckoutResult, error)
	GetBooking(ctx context.Context, token string, code string) (*models.Booking, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// LoginRequest represents the body of POST /login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse accepts both token field names used by the backend
type LoginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	Message     string `json:"message"`
}

// BearerToken returns whichever token field the backend filled in
func (r *LoginResponse) BearerToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}
