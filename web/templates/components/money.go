package components

import (
	"fmt"

	"tickets-web/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupiah = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount the way the booking site prints prices,
// "Rp 225.000", adding ",50" only when there is a fractional part
func FormatRupiah(a models.Amount) string {
	if a < 0 {
		return "-" + FormatRupiah(-a)
	}
	s := "Rp " + rupiah.Sprintf("%d", a.Units())
	if f := a.Fraction(); f != 0 {
		s += fmt.Sprintf(",%02d", f)
	}
	return s
}
