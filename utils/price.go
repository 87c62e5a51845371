package utils

import (
	"strconv"
	"strings"
)

const thousandsSeparator = "."

// ParsePrice reads a catalog price such as "15.000" or "15000". Every '.' is
// a thousands separator, never a decimal point. Anything that is not an
// integer after removing separators parses as 0 so a bad catalog row still
// renders.
func ParsePrice(price string) int64 {
	clean := strings.ReplaceAll(strings.TrimSpace(price), thousandsSeparator, "")
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatPrice groups digits in thousands: 1234567 -> "1.234.567".
func FormatPrice(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	var b strings.Builder
	b.Grow(len(sign) + len(digits) + len(digits)/3)
	b.WriteString(sign)
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > len(sign) {
			b.WriteString(thousandsSeparator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
