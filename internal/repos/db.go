package repos

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"textilepro/internal/domain"
	"textilepro/internal/repos/migrations"
)

// OpenDB connects with the given driver ("sqlite" or "pgx") and brings the
// schema up to date.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" || driver == "sqlite3" {
		driver = "sqlite"
	}
	if driver == "postgres" {
		driver = "pgx"
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if driver == "sqlite" {
		// One connection: keeps ":memory:" databases alive and serializes the
		// sync writer with request readers.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return nil, err
		}
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	dialect := "postgres"
	if db.DriverName() == "sqlite" {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, ".")
}

// SeedAdmin ensures the back-office account exists (idempotent). An existing
// account keeps its password.
func SeedAdmin(db *sqlx.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	res, err := db.Exec(db.Rebind(`
		INSERT INTO users(id,email,name,password_hash,role,created_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(email) DO NOTHING
	`), "u-admin", email, "Admin", string(h), domain.RoleAdmin, domain.FormatTime(time.Now()))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[seed] admin account %s created", email)
	}
	return nil
}
