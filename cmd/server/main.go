package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damacus/s3-manager/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	var configFile string
	rootCmd := &cobra.Command{
		Use:          "s3-manager",
		Short:        "Browser-based file manager for S3-compatible storage",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := serveCmd.Flags()
	flags.String("listen", "", "address to listen on (default 127.0.0.1:8080)")
	flags.String("data-dir", "", "directory for saved configurations and the secret key")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("password", "", "require this password to use the interface")
	flags.String("views-dir", "", "directory containing the HTML templates")
	flags.Duration("request-timeout", 0, "deadline for a single request, uploads included")
	for key, name := range map[string]string{
		config.KeyListen:         "listen",
		config.KeyDataDir:        "data-dir",
		config.KeyLogLevel:       "log-level",
		config.KeyPassword:       "password",
		config.KeyViewsDir:       "views-dir",
		config.KeyRequestTimeout: "request-timeout",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(serveCmd)
	return rootCmd
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	deps, err := buildDeps(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	e := newServer(deps)

	// Reopen the configuration that was active before the restart
	if err := deps.browser.Sync(ctx); err != nil {
		logger.Warn("failed to restore active configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("s3-manager listening", "version", version, "addr", cfg.Listen, "auth", deps.auth.Enabled())
		errCh <- e.Start(cfg.Listen)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	logger.Info("s3-manager stopped")
	return nil
}
