package toptex

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"textilepro/internal/domain"
)

// ErrMalformedPayload is returned when a product payload is neither a list
// nor an object wrapping one.
var ErrMalformedPayload = errors.New("toptex: malformed product payload")

// The upstream has used several naming conventions for the same attribute.
// Each canonical field lists its source keys in priority order; the first
// key holding a non-empty value wins.
var (
	skuKeys         = []string{"catalogReference", "catalog_reference", "reference", "sku", "supplierReference"}
	nameKeys        = []string{"designation", "name", "title", "label"}
	brandKeys       = []string{"brand", "brandName", "brand_name", "marque"}
	categoryKeys    = []string{"family", "category", "famille", "subfamily"}
	descriptionKeys = []string{"description", "shortDescription", "short_description"}
	imageKeys       = []string{"images", "pictures", "photos"}
	colorKeys       = []string{"colors", "colours", "couleurs"}
	sizeKeys        = []string{"sizes", "tailles"}

	listKeys = []string{"products", "items", "data"}

	imageURLKeys  = []string{"url_image", "url", "link", "src"}
	colorNameKeys = []string{"colors", "color", "colorName", "name", "label"}
	colorCodeKeys = []string{"colorCode", "color_code", "hexa", "hex", "code"}
	sizeNameKeys  = []string{"size", "sizeName", "name", "label"}

	// Localized values are objects keyed by language.
	langPriority = []string{"fr", "en"}
)

// DecodeProducts accepts either a bare JSON array of product objects or an
// object holding that array under one of listKeys.
func DecodeProducts(data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	list, ok := productList(doc)
	if !ok {
		return nil, ErrMalformedPayload
	}
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func productList(doc any) ([]any, bool) {
	switch v := doc.(type) {
	case []any:
		return v, true
	case map[string]any:
		for _, k := range listKeys {
			if l, ok := v[k].([]any); ok {
				return l, true
			}
		}
	}
	return nil, false
}

// NormalizeProduct maps one upstream record to the canonical Product. ok is
// false when no SKU can be found.
func NormalizeProduct(rec map[string]any) (domain.Product, bool) {
	sku := strings.TrimSpace(text(pick(rec, skuKeys)))
	if sku == "" {
		return domain.Product{}, false
	}
	p := domain.Product{
		SKU:         sku,
		Name:        strings.TrimSpace(text(pick(rec, nameKeys))),
		Brand:       strings.TrimSpace(text(pick(rec, brandKeys))),
		Category:    strings.TrimSpace(text(pick(rec, categoryKeys))),
		Description: strings.TrimSpace(text(pick(rec, descriptionKeys))),
		Images:      images(pick(rec, imageKeys)),
	}
	var nested []string
	p.Colors, nested = colors(pick(rec, colorKeys))
	p.Sizes = sizes(pick(rec, sizeKeys))
	if len(p.Sizes) == 0 {
		p.Sizes = nested
	}
	if raw, err := json.Marshal(rec); err == nil {
		p.RawData = raw
	}
	return p, true
}

func pick(rec map[string]any, keys []string) any {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if empty(v) {
			continue
		}
		return v
	}
	return nil
}

func empty(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// text flattens strings, numbers, localized objects and {name|label|value}
// objects into a single string.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%v", t)
	case bool:
		return fmt.Sprintf("%t", t)
	case map[string]any:
		for _, k := range langPriority {
			if s := text(t[k]); s != "" {
				return s
			}
		}
		for _, k := range []string{"name", "label", "value"} {
			if s := text(t[k]); s != "" {
				return s
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := t[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func images(v any) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	switch t := v.(type) {
	case string:
		add(t)
	case []any:
		for _, it := range t {
			switch img := it.(type) {
			case string:
				add(img)
			case map[string]any:
				add(text(pick(img, imageURLKeys)))
			}
		}
	}
	return out
}

// colors returns the color list and any sizes found nested under colors.
func colors(v any) ([]domain.Color, []string) {
	list, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	var out []domain.Color
	var nestedSizes []string
	for _, it := range list {
		switch c := it.(type) {
		case string:
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, domain.Color{Name: c})
			}
		case map[string]any:
			col := domain.Color{
				Name: strings.TrimSpace(text(pick(c, colorNameKeys))),
				Code: strings.TrimSpace(text(pick(c, colorCodeKeys))),
			}
			if col.Name != "" || col.Code != "" {
				out = append(out, col)
			}
			nestedSizes = append(nestedSizes, sizes(pick(c, sizeKeys))...)
		}
	}
	return out, dedupe(nestedSizes)
}

func sizes(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range list {
		var s string
		switch sz := it.(type) {
		case map[string]any:
			s = text(pick(sz, sizeNameKeys))
		default:
			s = text(sz)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
