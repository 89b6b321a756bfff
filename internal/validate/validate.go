package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const MaxQty = 10000

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ     = regexp.MustCompile(`^[\p{L}\p{N} _'&+.\-]{1,80}$`)
	reSKU   = regexp.MustCompile(`^[A-Za-z0-9._/-]{1,64}$`)
	rePhone = regexp.MustCompile(`^\+?[0-9 .()-]{6,20}$`)
	reLabel = regexp.MustCompile(`^[\p{L}\p{N} _'&+./()#-]{1,60}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if utf8.RuneCountInString(s) > 80 {
		s = string([]rune(s)[:80])
	}
	return s, reQ.MatchString(s)
}

// QtyUpdate clamps an update quantity. 0 and below mean "remove" and pass
// through unchanged.
func QtyUpdate(n int) int {
	if n > MaxQty {
		return MaxQty
	}
	return n
}

// SKU validates a supplier catalog reference.
func SKU(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reSKU.MatchString(s)
}

// Label validates a short free label such as a brand, color or size.
// Empty is allowed.
func Label(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s == "" || reLabel.MatchString(s)
}

func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, rePhone.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > 80 {
		return "", false
	}
	return s, true
}

// Text trims a free text field and caps it at max runes.
func Text(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return s
}

// Password enforces a simple length window for login checks.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 64 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
