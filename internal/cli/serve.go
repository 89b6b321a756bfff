package cli

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"textilepro/internal/catalogsync"
	"textilepro/internal/http/handlers"
	applog "textilepro/internal/log"
	"textilepro/internal/mail"
	"textilepro/internal/services"
	"textilepro/internal/toptex"
)

var (
	_ catalogsync.Upstream     = (*toptex.Client)(nil)
	_ services.CatalogUpstream = (*toptex.Client)(nil)
	_ services.QuoteMailer     = (*mail.Client)(nil)
	_ handlers.SyncController  = (*catalogsync.Manager)(nil)
)

var (
	serveTemplates string
	serveStatic    string
	serveReload    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the storefront API and the admin sync dashboard.

Routes backed by TopTex or the mail relay answer 503 until their
credentials are configured.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTemplates, "templates", "./web/templates", "HTML templates directory")
	serveCmd.Flags().StringVar(&serveStatic, "static", "./web/static", "static assets directory")
	serveCmd.Flags().BoolVar(&serveReload, "reload", false, "re-parse templates on every request")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	b := handlers.Backends{Brands: e.cfg.Brands}
	if up := e.supplier(); up != nil {
		b.Upstream = up
		mgr, err := e.syncManager(ctx, up)
		if err != nil {
			return err
		}
		defer mgr.Close()
		b.Sync = mgr
	} else {
		log.Printf("[warn] TopTex credentials missing: live catalog and sync disabled")
	}
	if e.cfg.RequireMail() == nil {
		b.Mailer = mail.NewClient(e.cfg.Mail, nil)
	} else {
		log.Printf("[warn] mail relay not configured: quote requests disabled")
	}

	app := handlers.NewApp(handlers.NewDeps(e.db, b), handlers.AppOptions{
		TemplatesDir:    serveTemplates,
		StaticDir:       serveStatic,
		ReloadTemplates: serveReload,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			applog.Error(nil, "server.shutdown", err, nil)
		}
	}()

	applog.Info(nil, "server.start", map[string]any{"port": e.cfg.Port})
	return app.Listen(":" + e.cfg.Port)
}
