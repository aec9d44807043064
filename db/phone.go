package db

import "strings"

// NormalizePhone reduces a phone number to its canonical local
// dialling form: non-digits are stripped, an international dialling
// "00" prefix is removed, and the 972 country code is replaced with a
// leading zero. "+972-50-1234567" normalises to "0501234567".
//
// The canonical form is what the customers.phone column stores and
// what the inline new-customer dedup matches on.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(b.String(), "00")
	if strings.HasPrefix(digits, "972") {
		digits = "0" + digits[len("972"):]
	}
	return digits
}
