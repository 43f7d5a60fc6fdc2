package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/damacus/s3-manager/internal/config"
	"github.com/damacus/s3-manager/internal/handlers"
	"github.com/damacus/s3-manager/internal/metrics"
	customMiddleware "github.com/damacus/s3-manager/internal/middleware"
	"github.com/damacus/s3-manager/internal/navigation"
	"github.com/damacus/s3-manager/internal/renderer"
	"github.com/damacus/s3-manager/internal/services"
	"github.com/damacus/s3-manager/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type serverDeps struct {
	logger         *slog.Logger
	browser        *navigation.Browser
	auth           *services.AuthService
	metrics        *metrics.Metrics
	renderer       *renderer.TemplateRenderer
	staticDir      string
	requestTimeout time.Duration
}

// buildDeps wires the production services for cfg
func buildDeps(cfg config.Config, logger *slog.Logger) (serverDeps, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return serverDeps{}, fmt.Errorf("create data dir: %w", err)
	}

	key := []byte(cfg.SecretKey)
	if len(key) == 0 {
		var err error
		if key, err = services.LoadOrCreateKey(cfg.KeyPath()); err != nil {
			return serverDeps{}, fmt.Errorf("load secret key: %w", err)
		}
	}
	box, err := services.NewSecretBox(key)
	if err != nil {
		return serverDeps{}, err
	}

	configs, err := store.Open(cfg.StorePath(), box)
	if err != nil {
		return serverDeps{}, fmt.Errorf("open configuration store: %w", err)
	}

	r, err := renderer.New(cfg.ViewsDir)
	if err != nil {
		return serverDeps{}, err
	}

	m := metrics.New()
	factory := &services.RealStorageFactory{Logger: logger, Observer: m.Storage}

	return serverDeps{
		logger:         logger,
		browser:        navigation.NewBrowser(configs, factory, logger),
		auth:           services.NewAuthService(cfg.Password, box),
		metrics:        m,
		renderer:       r,
		staticDir:      filepath.Join(cfg.ViewsDir, "static"),
		requestTimeout: cfg.RequestTimeout,
	}, nil
}

// metricsMiddleware adapts the net/http metrics middleware. Errors are
// rendered inside it so their status codes are counted.
func metricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return echo.WrapMiddleware(m.Middleware)(func(c echo.Context) error {
			if err := next(c); err != nil {
				c.Error(err)
			}
			return nil
		})
	}
}

func newServer(d serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	authHandler := handlers.NewAuthHandler(d.auth, d.logger)
	browserHandler := handlers.NewBrowserHandler(d.browser, d.auth.Enabled(), d.logger)
	configsHandler := handlers.NewConfigsHandler(d.browser, d.logger)

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			d.logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(metricsMiddleware(d.metrics))
	e.Use(customMiddleware.SecurityHeaders())
	if d.requestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: d.requestTimeout,
		}))
	}
	e.Use(customMiddleware.CSRF())
	// Applied globally; public routes are skipped inside
	e.Use(customMiddleware.PasswordGate(d.auth))

	e.Renderer = d.renderer

	// Public Routes
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(d.metrics.Handler()))
	e.GET("/login", authHandler.LoginPage)
	e.POST("/login", authHandler.Login)
	e.GET("/logout", authHandler.Logout)
	if d.staticDir != "" {
		e.Static("/static", d.staticDir)
	}

	// Protected Routes
	e.GET("/", browserHandler.Index)

	e.GET("/configs/create", configsHandler.CreateModal)
	e.POST("/configs/create", configsHandler.Create)
	e.GET("/configs/:id/edit", configsHandler.EditModal)
	e.POST("/configs/:id/edit", configsHandler.Edit)
	e.POST("/configs/:id/delete", configsHandler.Delete)
	e.POST("/configs/:id/select", configsHandler.Select)
	e.POST("/configs/deselect", configsHandler.Deselect)

	e.GET("/browse", browserHandler.Browse)
	e.GET("/browse/up", browserHandler.Up)

	e.POST("/objects/upload", browserHandler.Upload)
	e.GET("/objects/download", browserHandler.Download)
	e.POST("/objects/delete", browserHandler.Delete)

	return e
}
