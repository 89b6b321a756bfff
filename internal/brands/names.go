// Package brands turns raw supplier brand strings into display names, URL
// slugs and logos.
package brands

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// overrides holds spellings title-casing would get wrong, keyed by the
// upper-cased raw name.
var overrides = map[string]string{
	"SOLS":                 "SOL'S",
	"SOL'S":                "SOL'S",
	"B&C":                  "B&C",
	"B&C COLLECTION":       "B&C Collection",
	"BELLA+CANVAS":         "Bella+Canvas",
	"BELLA CANVAS":         "Bella+Canvas",
	"STANLEY/STELLA":       "Stanley/Stella",
	"STANLEY STELLA":       "Stanley/Stella",
	"FRUIT OF THE LOOM":    "Fruit of the Loom",
	"WK. DESIGNED TO WORK": "WK. Designed To Work",
	"K-UP":                 "K-Up",
	"AWDIS":                "AWDis",
	"JUST HOODS BY AWDIS":  "Just Hoods by AWDis",
	"KARIBAN PREMIUM":      "Kariban Premium",
	"RUSSELL EUROPE":       "Russell Europe",
}

// DisplayName applies known overrides, then title-cases names written in
// capitals. Mixed-case names are kept as written.
func DisplayName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return ""
	}
	if o, ok := overrides[strings.ToUpper(name)]; ok {
		return o
	}
	if !allCaps(name) {
		return name
	}
	return cases.Title(language.French).String(name)
}

func allCaps(s string) bool {
	letters := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters
}

// Slug is the lowercase, accent-free, dash-joined form of raw.
// Apostrophes vanish ("SOL'S" gives "sols").
func Slug(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, raw)
	if err != nil {
		plain = raw
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}
