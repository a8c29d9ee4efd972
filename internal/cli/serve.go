package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/panel/internal/review"
	"github.com/dshills/panel/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook receiver and review API",
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]string{}
		if flagAddr != "" {
			overrides["addr"] = flagAddr
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		defer a.Close()

		if a.gh == nil {
			a.logger.Warn("GITHUB_TOKEN not set; webhook and PR reviews will be rejected")
		}
		if cfg.GitHub.WebhookSecret == "" {
			a.logger.Warn("GITHUB_WEBHOOK_SECRET not set; webhook receiver is disabled")
		}

		specs := review.Categories
		if defaults, err := runOptions(cfg.Review); err == nil && len(defaults.Specialists) > 0 {
			specs = defaults.Specialists
		}
		name := cfg.Logging.Service
		if name == "" {
			name = "panel"
		}
		srv := server.New(a.svc, server.Info{
			Name:        name,
			Version:     version,
			Provider:    a.backend.Name(),
			Model:       cfg.Model,
			Specialists: specs,
		}, cfg.GitHub.WebhookSecret, a.logger)

		serveErr := srv.ListenAndServe(ctx, cfg.Server)

		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.svc.Shutdown(drainCtx); err != nil {
			a.logger.Warn("background reviews cancelled at shutdown", "error", err)
		}
		a.logger.Info("cache stats", "stats", a.cache.GetStats())

		if serveErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", serveErr)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default :8000)")
}
