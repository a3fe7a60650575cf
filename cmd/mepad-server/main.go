// Package main is the entrypoint for the mepad server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mepad/mepad-server/internal/config"
	"github.com/mepad/mepad-server/internal/identity"
	"github.com/mepad/mepad-server/internal/invites"
	"github.com/mepad/mepad-server/internal/server"
	"github.com/mepad/mepad-server/internal/store"

	// Register store drivers
	_ "github.com/mepad/mepad-server/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	externalOrigin := flag.String("external-origin", "", "External origin for invitation links (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: memory or sqlite (overrides config)")
	tlsMode := flag.String("tls-mode", "", "TLS mode: off, static, or selfsigned (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	adminEmail := flag.String("admin-email", "", "Bootstrap admin email (overrides config)")
	adminPassword := flag.String("admin-password", "", "Bootstrap admin password (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:     *listenAddr,
			ExternalOrigin: *externalOrigin,
			StoreDriver:    *storeDriver,
			TLSMode:        *tlsMode,
			LogLevel:       *logLevel,
			AdminEmail:     *adminEmail,
			AdminPassword:  *adminPassword,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Logging.LogLevel()}))
	slog.SetDefault(logger)

	logger.Info("effective configuration", "config", cfg.Redacted())

	if cfg.Auth.JWTSecret == "" {
		logger.Error("auth.jwt_secret is required (set MEPAD_AUTH_JWT_SECRET or the config file)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open persistence driver
	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		Options: cfg.Store.Options,
	})
	if err != nil {
		logger.Error("failed to create store driver", "driver", cfg.Store.Driver, "available", store.AvailableDrivers(), "error", err)
		os.Exit(1)
	}
	if err := driver.Init(ctx); err != nil {
		logger.Error("failed to initialize store", "driver", driver.Name(), "error", err)
		os.Exit(1)
	}
	defer driver.Close()
	logger.Info("store initialized", "driver", driver.Name())

	userAuth := identity.NewUserAuth(cfg.Auth.BcryptCost)
	tokens := identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())

	// Bootstrap admin account
	if cfg.Auth.BootstrapAdmin.Email != "" {
		bootstrap := identity.NewBootstrap(driver.Users(), userAuth, logger)
		if _, err := bootstrap.Run(ctx, identity.SeededUser{
			Email:    cfg.Auth.BootstrapAdmin.Email,
			Password: cfg.Auth.BootstrapAdmin.Password,
			Role:     identity.RoleAdmin,
		}, nil); err != nil {
			logger.Error("failed to bootstrap admin user", "error", err)
			os.Exit(1)
		}
	}

	deps := &server.Deps{
		UserRepo:      driver.Users(),
		MeetingRepo:   driver.Meetings(),
		InviteRepo:    driver.Invitations(),
		TaskRepo:      driver.Tasks(),
		UserAuth:      userAuth,
		Tokens:        tokens,
		InviteService: invites.NewService(driver.Invitations(), driver.Meetings(), logger),
	}

	srv, err := server.New(cfg, logger, deps)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
