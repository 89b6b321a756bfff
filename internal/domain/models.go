package domain

import "time"

// TimeLayout is the fixed-width UTC layout used for every TEXT timestamp
// column, so lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

type Color struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Product is the catalog row keyed by the supplier SKU.
type Product struct {
	SKU         string   `db:"sku" json:"sku"`
	Name        string   `db:"name" json:"name"`
	Brand       string   `db:"brand" json:"brand"`
	Category    string   `db:"category" json:"category"`
	Description string   `db:"description" json:"description"`
	Images      []string `db:"-" json:"images"`
	Colors      []Color  `db:"-" json:"colors"`
	Sizes       []string `db:"-" json:"sizes"`
	RawData     []byte   `db:"-" json:"-"`
	SyncedAt    string   `db:"synced_at" json:"synced_at"`
	UpdatedAt   string   `db:"updated_at" json:"updated_at"`
}

// Attributes holds the distinct filter values of the catalog.
type Attributes struct {
	Brands        []string `json:"brands"`
	Categories    []string `json:"categories"`
	Subcategories []string `json:"subcategories"`
}

type Brand struct {
	Name         string `db:"brand" json:"name"`
	DisplayName  string `db:"-" json:"display_name"`
	Slug         string `db:"-" json:"slug"`
	LogoURL      string `db:"-" json:"logo_url"`
	ProductCount int    `db:"product_count" json:"product_count"`
}
