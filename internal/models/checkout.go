package models

import "fmt"

// CheckoutRequest is the body of POST /checkout
type CheckoutRequest struct {
	CartIDs       []int64       `json:"cart_ids"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// CheckoutResult is the successful response of POST /checkout
type CheckoutResult struct {
	BookingCode string `json:"booking_code"`
	Message     string `json:"message,omitempty"`
}

// Validate checks the request against the currently loaded cart lines
func (req *CheckoutRequest) Validate(loaded []CartLine) error {
	if len(req.CartIDs) == 0 {
		return ErrEmptySelection
	}

	if !req.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: unsupported payment method %q", ErrInvalidInput, req.PaymentMethod)
	}

	present := make(map[int64]bool, len(loaded))
	for _, line := range loaded {
		present[line.ID] = true
	}
	for _, id := range req.CartIDs {
		if !present[id] {
			return fmt.Errorf("%w: cart line %d is not in the cart", ErrInvalidInput, id)
		}
	}

	return nil
}
