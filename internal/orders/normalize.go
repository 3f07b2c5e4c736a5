package orders

import (
	"strings"

	"github.com/imrishuroy/pos-orderflow/internal/pos"
)

const (
	// DefaultClientName is used when the mini-app sends no display name.
	DefaultClientName = "Гость"
	defaultPhoneCode  = "+7"
	maxPhoneLen       = 15
)

// NormalizeClient coerces free-form contact data into the POS client block.
// Phones are reduced to digits and a leading trunk digit (8 or 7) is dropped
// from full-length numbers, so "+7 (900) 123-45-67" and "89001234567" both
// become "9001234567".
func NormalizeClient(c ClientInfo) pos.Customer {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = DefaultClientName
	}
	return pos.Customer{
		Name:      name,
		PhoneCode: defaultPhoneCode,
		Phone:     NormalizePhone(c.Phone),
		Email:     strings.TrimSpace(c.Email),
	}
}

// NormalizePhone returns the national part of a phone number, at most 15
// digits. It never fails; garbage input yields "".
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) >= 11 && (digits[0] == '8' || digits[0] == '7') {
		digits = digits[1:]
	}
	if len(digits) > maxPhoneLen {
		digits = digits[:maxPhoneLen]
	}
	return digits
}
