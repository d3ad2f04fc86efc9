package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	internal "github.com/ZanzyTHEbar/intern-diary/diary"
	"github.com/ZanzyTHEbar/intern-diary/diary/api"
	"github.com/ZanzyTHEbar/intern-diary/diary/config"
	"github.com/ZanzyTHEbar/intern-diary/diary/generation/harness"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diary HTTP API",
	Long: `Serve the diary generator over HTTP until interrupted.

The result cache is swept every cache.cleanup_interval. When a config file is
in use, edits to log.level take effect without a restart.

POST /api/generate answers 400 for a missing key or summary or a malformed
body, 429 when rate_limit.capacity upstream calls are already in flight
(retry after a second), and 500 when the upstream call fails.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, loader, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg)
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	if cfg.LLM.APIKey == "" {
		logger.Warn().Msgf("%s is not set; requests must carry api_key", internal.DefaultAPIKeyEnv)
	}
	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	orchestrator, err := harness.NewFactory(cfg, logger).CreateOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to wire generator: %w", err)
	}
	server := api.NewServer(cfg.Server, orchestrator, logger)

	policy := orchestrator.Policy()
	logger.Info().
		Str("provider", policy.ProviderName).
		Str("model", policy.Model).
		Dur("timeout", policy.Timeout).
		Bool("cache", cfg.Cache.Enabled).
		Msg("generator ready")

	loader.Watch(func(next *config.Config) {
		if logLevel != "" {
			return
		}
		if err := applyLogLevel(next.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("ignoring reloaded log level")
			return
		}
		logger.Info().Str("level", next.Log.Level).Msg("log level reloaded")
	}, func(err error) {
		logger.Warn().Err(err).Msg("config reload failed")
	})
	if file := loader.ConfigFileUsed(); file != "" {
		logger.Info().Str("file", file).Msg("using config file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	var wg conc.WaitGroup
	wg.Go(func() {
		orchestrator.RunJanitor(ctx, cfg.Cache.CleanupInterval)
	})
	wg.Go(func() {
		serveErr = server.Run()
		// A listener failure must also stop the janitor.
		stop()
	})

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	wg.Wait()

	return serveErr
}
