package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned by the Require* checks when an operation
// is invoked without the settings it needs.
var ErrMissingCredentials = errors.New("missing credentials")

type Config struct {
	Port     string
	DBDriver string // sqlite | pgx
	DBDSN    string
	LogFile  string

	TopTex TopTexConfig
	Sync   SyncConfig
	S3     S3Config
	Mail   MailConfig
	Brands BrandConfig

	AdminEmail    string
	AdminPassword string
}

type TopTexConfig struct {
	BaseURL    string
	APIKey     string
	Username   string
	Password   string
	RatePerMin int
	TokenTTL   time.Duration
}

type SyncConfig struct {
	InitialWait  time.Duration
	RetryWait    time.Duration
	PollAttempts int
	ExportCycles int
	BatchSize    int
	MinFileBytes int64
}

// S3Config is optional: an empty Bucket disables the export archive.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type MailConfig struct {
	APIURL string
	APIKey string
	From   string
	To     string
}

type BrandConfig struct {
	PageURL string
	LogoURL string
}

func Load() Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := Config{
		Port:     env("PORT", "8080"),
		DBDriver: env("DB_DRIVER", "sqlite"),
		DBDSN:    env("DB_DSN", "textilepro.db"), // sqlite file in project root
		LogFile:  env("LOG_FILE", "./textilepro.log"),
		TopTex: TopTexConfig{
			BaseURL:    env("TOPTEX_BASE_URL", "https://api.toptex.io"),
			APIKey:     os.Getenv("TOPTEX_API_KEY"),
			Username:   os.Getenv("TOPTEX_USERNAME"),
			Password:   os.Getenv("TOPTEX_PASSWORD"),
			RatePerMin: envInt("TOPTEX_RATE_PER_MIN", 60),
			// upstream tokens live ~30 minutes
			TokenTTL: envDuration("TOPTEX_TOKEN_TTL", 25*time.Minute),
		},
		Sync: SyncConfig{
			InitialWait:  envDuration("SYNC_INITIAL_WAIT", 5*time.Minute),
			RetryWait:    envDuration("SYNC_RETRY_WAIT", time.Minute),
			PollAttempts: envInt("SYNC_POLL_ATTEMPTS", 5),
			ExportCycles: envInt("SYNC_EXPORT_CYCLES", 3),
			BatchSize:    envInt("SYNC_BATCH_SIZE", 100),
			MinFileBytes: int64(envInt("SYNC_MIN_FILE_BYTES", 50<<20)),
		},
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    env("S3_REGION", "eu-west-3"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		Mail: MailConfig{
			APIURL: env("MAIL_API_URL", "https://api.resend.com/emails"),
			APIKey: os.Getenv("MAIL_API_KEY"),
			From:   env("MAIL_FROM", "devis@textilepro.fr"),
			To:     env("MAIL_TO", "contact@textilepro.fr"),
		},
		Brands: BrandConfig{
			PageURL: env("BRAND_PAGE_URL", "https://www.toptex.fr/marques"),
			LogoURL: env("BRAND_LOGO_URL", "/static/brands"),
		},
		AdminEmail:    env("ADMIN_EMAIL", "admin@textilepro.test"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	log.Printf("[config] PORT=%s DB_DRIVER=%s DB_DSN=%s LOG_FILE=%s TOPTEX_BASE_URL=%s TOPTEX_API_KEY=%s S3_BUCKET=%s",
		cfg.Port, cfg.DBDriver, cfg.DBDSN, cfg.LogFile, cfg.TopTex.BaseURL, mask(cfg.TopTex.APIKey), cfg.S3.Bucket)
	return cfg
}

// RequireTopTex reports whether the supplier credentials are all present.
func (c Config) RequireTopTex() error {
	if c.TopTex.APIKey == "" || c.TopTex.Username == "" || c.TopTex.Password == "" {
		return errors.Join(ErrMissingCredentials, errors.New("TOPTEX_API_KEY, TOPTEX_USERNAME and TOPTEX_PASSWORD must be set"))
	}
	return nil
}

func (c Config) RequireMail() error {
	if c.Mail.APIKey == "" || c.Mail.APIURL == "" {
		return errors.Join(ErrMissingCredentials, errors.New("MAIL_API_KEY must be set"))
	}
	return nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
