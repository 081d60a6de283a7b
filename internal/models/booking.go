package models

// Booking represents a finalized, paid order
type Booking struct {
	BookingCode string          `json:"booking_code"`
	QRString    string          `json:"qr_string"` // opaque redemption payload
	GrandTotal  Amount          `json:"grand_total"`
	Details     []BookingDetail `json:"details"`
}

// BookingDetail represents one redeemable line within a booking
type BookingDetail struct {
	Destination Destination `json:"destination"`
	VisitDate   string      `json:"visit_date"`
	Quantity    int         `json:"quantity"`
}

// TotalQuantity returns the number of people admitted by the booking
func (b *Booking) TotalQuantity() int {
	total := 0
	for _, detail := range b.Details {
		total += detail.Quantity
	}
	return total
}
