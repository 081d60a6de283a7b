package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Amount is a monetary value in hundredths of the currency unit.
//
// The backend sends amounts either as JSON numbers (150000, 150000.5, 1.5e5) or
// as decimal strings ("150000.00"); both decode to the same Amount.
type Amount int64

// AmountFromUnits builds an Amount from a whole number of currency units
func AmountFromUnits(units int64) Amount {
	return Amount(units * 100)
}

// Units returns the whole-unit part of the amount
func (a Amount) Units() int64 {
	return int64(a) / 100
}

// Fraction returns the hundredths part of the amount
func (a Amount) Fraction() int64 {
	f := int64(a) % 100
	if f < 0 {
		f = -f
	}
	return f
}

// maxExponent bounds the exponent of number literals so big.Rat never expands
// huge powers of ten.
const maxExponent = 64

// ParseAmount parses a decimal number such as "225000", "225000.5",
// "225000.00" or "1.5e5". Values are rounded half away from zero to hundredths.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	if !isDecimalLiteral(s) {
		return 0, fmt.Errorf("%w: amount %q is not a decimal number", ErrInvalidInput, s)
	}

	literal := s
	if strings.HasPrefix(literal, ".") || strings.HasPrefix(literal, "-.") {
		literal = strings.Replace(literal, ".", "0.", 1)
	}
	value, ok := new(big.Rat).SetString(literal)
	if !ok {
		return 0, fmt.Errorf("%w: amount %q is not a decimal number", ErrInvalidInput, s)
	}

	hundredths := roundHalfAway(value.Mul(value, big.NewRat(100, 1)))
	if !hundredths.IsInt64() {
		return 0, fmt.Errorf("%w: amount %q is out of range", ErrInvalidInput, s)
	}
	return Amount(hundredths.Int64()), nil
}

// isDecimalLiteral accepts -?digits[.digits][e[+-]digits] where either the
// integer or the fraction part may be empty, but not both.
func isDecimalLiteral(s string) bool {
	s = strings.TrimPrefix(s, "-")

	mantissa, exponent, hasExponent := strings.Cut(strings.ToLower(s), "e")
	whole, frac, _ := strings.Cut(mantissa, ".")
	if !allDigits(whole) || !allDigits(frac) || whole+frac == "" {
		return false
	}
	if !hasExponent {
		return true
	}

	if strings.HasPrefix(exponent, "+") || strings.HasPrefix(exponent, "-") {
		exponent = exponent[1:]
	}
	if exponent == "" || !allDigits(exponent) {
		return false
	}
	n, err := strconv.Atoi(exponent)
	return err == nil && n <= maxExponent
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func roundHalfAway(r *big.Rat) *big.Int {
	quotient, remainder := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	twice := new(big.Int).Abs(remainder)
	twice.Lsh(twice, 1)
	if twice.Cmp(r.Denom()) >= 0 {
		quotient.Add(quotient, big.NewInt(int64(r.Num().Sign())))
	}
	return quotient
}

// UnmarshalJSON accepts numbers, numeric strings and null
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}

	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON writes the amount as a JSON number
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// String returns the plain decimal form, e.g. "225000" or "225000.50"
func (a Amount) String() string {
	sign := ""
	if a < 0 {
		sign = "-"
	}
	units := a.Units()
	if units < 0 {
		units = -units
	}
	if a.Fraction() == 0 {
		return fmt.Sprintf("%s%d", sign, units)
	}
	return fmt.Sprintf("%s%d.%02d", sign, units, a.Fraction())
}
