package toptex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"textilepro/internal/domain"
)

var (
	brandAttrKeys      = []string{"brand", "brands", "marque", "marques"}
	familyAttrKeys     = []string{"family", "families", "category", "categories"}
	subfamilyAttrKeys  = []string{"subfamily", "subfamilies", "subcategory", "subcategories"}
	attributeItemsKeys = []string{"items", "data", "attributes"}
)

// ParseAttributes accepts both shapes the attributes endpoint has returned:
// an array of {brand, family, subfamily} objects, or an object of arrays
// keyed by singular or plural names.
func ParseAttributes(raw []byte) (domain.Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return domain.Attributes{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var brands, families, subfamilies []string
	collect := func(obj map[string]any) {
		brands = append(brands, values(pick(obj, brandAttrKeys))...)
		families = append(families, values(pick(obj, familyAttrKeys))...)
		subfamilies = append(subfamilies, values(pick(obj, subfamilyAttrKeys))...)
	}

	switch v := doc.(type) {
	case []any:
		for _, it := range v {
			if obj, ok := it.(map[string]any); ok {
				collect(obj)
			}
		}
	case map[string]any:
		if items, ok := pick(v, attributeItemsKeys).([]any); ok {
			for _, it := range items {
				if obj, ok := it.(map[string]any); ok {
					collect(obj)
				}
			}
		} else {
			collect(v)
		}
	default:
		return domain.Attributes{}, ErrMalformedPayload
	}

	return domain.Attributes{
		Brands:        NormalizeValues(brands),
		Categories:    NormalizeValues(families),
		Subcategories: NormalizeValues(subfamilies),
	}, nil
}

// values flattens a scalar, localized object or list into strings.
func values(v any) []string {
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, it := range list {
			out = append(out, values(it)...)
		}
		return out
	}
	if s := strings.TrimSpace(text(v)); s != "" {
		return []string{s}
	}
	return nil
}

// NormalizeValues drops blanks, deduplicates case-insensitively keeping the
// first spelling seen, and sorts with French collation.
func NormalizeValues(in []string) []string {
	fold := cases.Fold()
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := fold.String(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	collate.New(language.French, collate.IgnoreCase).SortStrings(out)
	return out
}
