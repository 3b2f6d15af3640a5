package recognition

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidPhone is returned when a number does not fit the region rules.
var ErrInvalidPhone = errors.New("recognition: invalid phone number")

// PhonePolicy validates and normalizes phone numbers for one region.
type PhonePolicy struct {
	Region string
}

// NewPhonePolicy returns the policy for region. Unknown regions fall back
// to IN.
func NewPhonePolicy(region string) PhonePolicy {
	switch strings.ToUpper(strings.TrimSpace(region)) {
	case "US":
		return PhonePolicy{Region: "US"}
	default:
		return PhonePolicy{Region: "IN"}
	}
}

// Normalize strips separators and the country or trunk prefix, returning
// the ten digit national number.
func (p PhonePolicy) Normalize(raw string) (string, error) {
	digits := make([]rune, 0, len(raw))
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}
	number := string(digits)

	switch p.Region {
	case "US":
		if len(number) == 11 && strings.HasPrefix(number, "1") {
			number = number[1:]
		}
		if len(number) != 10 || number[0] == '0' || number[0] == '1' {
			return "", ErrInvalidPhone
		}
	default:
		switch {
		case len(number) == 12 && strings.HasPrefix(number, "91"):
			number = number[2:]
		case len(number) == 11 && strings.HasPrefix(number, "0"):
			number = number[1:]
		}
		if len(number) != 10 || number[0] < '6' || number[0] > '9' {
			return "", ErrInvalidPhone
		}
	}
	return number, nil
}

// Valid reports whether raw normalizes cleanly.
func (p PhonePolicy) Valid(raw string) bool {
	_, err := p.Normalize(raw)
	return err == nil
}

// Mask hides all but the last four digits for logging.
func Mask(number string) string {
	if len(number) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
