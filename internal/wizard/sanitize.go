package wizard

import "strings"

// SanitizeDecimal strips everything but digits and the first decimal point
// from a numeric field value. "12a.b3.4" becomes "12.34".
func SanitizeDecimal(value string) string {
	var b strings.Builder
	seenPoint := false
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenPoint:
			seenPoint = true
			b.WriteRune(r)
		}
	}
	return b.String()
}
