package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"gopkg.in/natefinch/lumberjack.v2"

	"forca-proxy-go/internal/client"
	"forca-proxy-go/internal/config"
	"forca-proxy-go/internal/handler"
	"forca-proxy-go/internal/metrics"
	"forca-proxy-go/internal/middleware"
	"forca-proxy-go/internal/netaddr"
	"forca-proxy-go/internal/service"
	"forca-proxy-go/internal/web"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A .env file in the working directory may supply BACKEND_URL and friends.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("forca-proxy"),
		kong.Description("Landing page and JSON reverse proxy for the Forca game backend."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			newMetrics,
			newLocalIP,
			newEcho,
			web.NewRenderer,
			client.NewBackendClient,
			service.NewProxyService,
			handler.NewPageHandler,
			handler.NewProxyHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(
			handler.RegisterRoutes,
			handler.RegisterMetrics,
			warnConfigPermissions,
			startServer,
		),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var out io.Writer = os.Stdout
	if cfg.Log.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		})
	}

	var h slog.Handler
	switch cfg.Log.Format {
	case "text":
		h = slog.NewTextHandler(out, opts)
	default:
		h = slog.NewJSONHandler(out, opts)
	}

	return slog.New(h)
}

// newMetrics returns nil when metrics are disabled; every consumer accepts nil.
func newMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

func newLocalIP(cfg *config.Config, logger *slog.Logger) handler.LocalIP {
	if cfg.Landing.LocalIP != "" {
		return handler.LocalIP(cfg.Landing.LocalIP)
	}
	ip := netaddr.LocalIP()
	if ip == netaddr.Loopback {
		logger.Warn("local network address not found, landing page will show loopback")
	}
	return handler.LocalIP(ip)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(logger)

	// Inbound timeouts to mitigate slow-client attacks. The write timeout leaves
	// room for the backend call on top of request processing.
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = cfg.Backend.Timeout() + 10*time.Second
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.MetricsMiddleware(m))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders(handler.ProxyPrefix))

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit.RequestsPerSecond))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, ip handler.LocalIP, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server",
				"addr", addr,
				"backend", cfg.Backend.BaseURL,
				"landing", fmt.Sprintf("http://%s:%d", ip, cfg.Server.Port),
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
