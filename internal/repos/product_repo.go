package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"textilepro/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// ProductFilter narrows a catalog listing. Empty fields do not filter.
type ProductFilter struct {
	Query    string
	Brand    string
	Category string
	Limit    int
	Offset   int
}

type productRow struct {
	SKU         string         `db:"sku"`
	Name        string         `db:"name"`
	Brand       string         `db:"brand"`
	Category    string         `db:"category"`
	Description string         `db:"description"`
	Images      string         `db:"images"`
	Colors      string         `db:"colors"`
	Sizes       string         `db:"sizes"`
	RawData     sql.NullString `db:"raw_data"`
	SyncedAt    string         `db:"synced_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (row productRow) toDomain() domain.Product {
	p := domain.Product{
		SKU: row.SKU, Name: row.Name, Brand: row.Brand, Category: row.Category,
		Description: row.Description, SyncedAt: row.SyncedAt, UpdatedAt: row.UpdatedAt,
	}
	// Columns are written by UpsertBatch only; a bad value leaves the slice empty.
	_ = json.Unmarshal([]byte(row.Images), &p.Images)
	_ = json.Unmarshal([]byte(row.Colors), &p.Colors)
	_ = json.Unmarshal([]byte(row.Sizes), &p.Sizes)
	if row.RawData.Valid {
		p.RawData = []byte(row.RawData.String)
	}
	return p
}

var productColumns = []string{
	"sku", "name", "brand", "category", "description", "images", "colors", "sizes", "raw_data", "synced_at", "updated_at",
}

func (r *ProductRepo) builder() sq.StatementBuilderType {
	if r.db.DriverName() == "pgx" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// UpsertBatch writes every product in one transaction keyed by SKU; on
// conflict all mutable columns are overwritten. Returns the rows written.
func (r *ProductRepo) UpsertBatch(ctx context.Context, products []domain.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO products(sku,name,brand,category,description,images,colors,sizes,raw_data,synced_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(sku) DO UPDATE SET
		  name = excluded.name,
		  brand = excluded.brand,
		  category = excluded.category,
		  description = excluded.description,
		  images = excluded.images,
		  colors = excluded.colors,
		  sizes = excluded.sizes,
		  raw_data = excluded.raw_data,
		  synced_at = excluded.synced_at,
		  updated_at = excluded.updated_at
	`))
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := domain.FormatTime(time.Now())
	for _, p := range products {
		images, _ := json.Marshal(nonNil(p.Images))
		colors, _ := json.Marshal(nonNilColors(p.Colors))
		sizes, _ := json.Marshal(nonNil(p.Sizes))
		var raw any
		if len(p.RawData) > 0 {
			raw = string(p.RawData)
		}
		syncedAt := p.SyncedAt
		if syncedAt == "" {
			syncedAt = now
		}
		if _, err := stmt.ExecContext(ctx, p.SKU, p.Name, p.Brand, p.Category, p.Description,
			string(images), string(colors), string(sizes), raw, syncedAt, now); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", p.SKU, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(products), nil
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products`)
	return n, err
}

// Get returns sql.ErrNoRows when the SKU is unknown.
func (r *ProductRepo) Get(ctx context.Context, sku string) (domain.Product, error) {
	q, args, err := r.builder().Select(productColumns...).From("products").Where(sq.Eq{"sku": sku}).ToSql()
	if err != nil {
		return domain.Product{}, err
	}
	var row productRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		return domain.Product{}, err
	}
	return row.toDomain(), nil
}

// List returns one page of products plus the total matching the filter.
func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]domain.Product, int, error) {
	where := sq.And{}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		pat := "%" + q + "%"
		where = append(where, sq.Or{
			sq.Like{"LOWER(name)": pat},
			sq.Like{"LOWER(description)": pat},
			sq.Like{"LOWER(sku)": pat},
		})
	}
	if f.Brand != "" {
		where = append(where, sq.Expr("LOWER(brand) = ?", strings.ToLower(f.Brand)))
	}
	if f.Category != "" {
		where = append(where, sq.Expr("LOWER(category) = ?", strings.ToLower(f.Category)))
	}

	countQ, countArgs, err := r.builder().Select("COUNT(*)").From("products").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQ, countArgs...); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 24
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	q, args, err := r.builder().Select(productColumns...).From("products").Where(where).
		OrderBy("name", "sku").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}

// Brands lists distinct non-empty brands with their product counts.
func (r *ProductRepo) Brands(ctx context.Context) ([]domain.Brand, error) {
	var out []domain.Brand
	err := r.db.SelectContext(ctx, &out, `
		SELECT brand, COUNT(*) AS product_count
		FROM products
		WHERE brand <> ''
		GROUP BY brand
		ORDER BY brand
	`)
	return out, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilColors(c []domain.Color) []domain.Color {
	if c == nil {
		return []domain.Color{}
	}
	return c
}
