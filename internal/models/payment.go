package models

import "fmt"

// PaymentMethod is one of the payment methods accepted at checkout
type PaymentMethod string

const (
	PaymentQRIS     PaymentMethod = "qris"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCOD      PaymentMethod = "cod"
)

// PaymentMethods lists the supported methods in display order; the first is the default
var PaymentMethods = []PaymentMethod{PaymentQRIS, PaymentTransfer, PaymentCOD}

// DefaultPaymentMethod is preselected on every new cart view
func DefaultPaymentMethod() PaymentMethod {
	return PaymentMethods[0]
}

// Label returns the human readable name of the method
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentQRIS:
		return "QRIS (Instant)"
	case PaymentTransfer:
		return "Bank Transfer"
	case PaymentCOD:
		return "Pay at location"
	default:
		return string(m)
	}
}

// IsValid reports whether m is part of the supported set
func (m PaymentMethod) IsValid() bool {
	for _, supported := range PaymentMethods {
		if m == supported {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts form input into a supported method
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unsupported payment method %q", ErrInvalidInput, s)
	}
	return m, nil
}
