// Package cli provides the textilepro commands: the HTTP server, catalog
// sync control and schema migration.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"textilepro/internal/catalogsync"
	"textilepro/internal/config"
	applog "textilepro/internal/log"
	"textilepro/internal/repos"
	"textilepro/internal/toptex"
)

var rootCmd = &cobra.Command{
	Use:   "textilepro",
	Short: "TextilePro storefront backend",
	Long: `TextilePro storefront backend

Serves the catalog, cart and quote APIs and drives the TopTex catalog sync.
Configuration comes from the environment (a .env file is read first).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the command line until ctx is cancelled or the command ends.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// env is what every command needs: configuration and an open database.
type env struct {
	cfg config.Config
	db  *sqlx.DB
}

func openEnv() (*env, error) {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := repos.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	return &env{cfg: cfg, db: db}, nil
}

func (e *env) Close() error { return e.db.Close() }

// supplier returns nil when the TopTex credentials are incomplete.
func (e *env) supplier() *toptex.Client {
	if e.cfg.RequireTopTex() != nil {
		return nil
	}
	t := e.cfg.TopTex
	return toptex.NewClient(toptex.Options{
		BaseURL:    t.BaseURL,
		APIKey:     t.APIKey,
		Username:   t.Username,
		Password:   t.Password,
		RatePerMin: t.RatePerMin,
		TokenTTL:   t.TokenTTL,
	})
}

func (e *env) syncManager(ctx context.Context, up *toptex.Client) (*catalogsync.Manager, error) {
	if up == nil {
		return nil, e.cfg.RequireTopTex()
	}
	var opts []catalogsync.SyncerOption
	archiver, err := catalogsync.NewS3ArchiverFromConfig(ctx, e.cfg.S3)
	if err != nil {
		return nil, err
	}
	if archiver != nil {
		opts = append(opts, catalogsync.WithArchiver(archiver))
	}

	products := repos.NewProductRepo(e.db)
	jobs := repos.NewSyncJobRepo(e.db)
	syncer := catalogsync.NewSyncer(up, products, jobs, catalogsync.PolicyFromConfig(e.cfg.Sync), opts...)
	return catalogsync.NewManager(jobs, products, syncer), nil
}
