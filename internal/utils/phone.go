package utils

import "strings"

// NormalizePhone keeps only digits, at most ten of them
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == 10 {
				break
			}
		}
	}
	return b.String()
}

// FormatPhone renders a phone number as (555) 123-4567, degrading gracefully
// for partial numbers
func FormatPhone(phone string) string {
	digits := NormalizePhone(phone)
	switch {
	case len(digits) <= 3:
		return digits
	case len(digits) <= 6:
		return "(" + digits[:3] + ") " + digits[3:]
	default:
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	}
}

// E164 converts a ten digit North American number to +1XXXXXXXXXX.
// It returns "" when the number is incomplete.
func E164(phone string) string {
	digits := NormalizePhone(phone)
	if len(digits) != 10 {
		return ""
	}
	return "+1" + digits
}
