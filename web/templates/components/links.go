package components

import "net/url"

// TicketPath links to the ticket page of a booking code as one path segment
func TicketPath(code string) string {
	return "/tickets/" + url.PathEscape(code)
}

// TicketQRPath links to the QR download of a booking code
func TicketQRPath(code string) string {
	return TicketPath(code) + "/qr.png"
}
