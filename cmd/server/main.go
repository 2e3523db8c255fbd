package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/thejerf/abtime"
	"go.uber.org/zap"

	"blogapp/internal/auth"
	"blogapp/internal/config"
	"blogapp/internal/db"
	"blogapp/internal/http/render"
	"blogapp/internal/http/router"
	applog "blogapp/internal/log"
	"blogapp/internal/security"
)

func main() {
	configFile := flag.String("config", "config/app.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	// Load configuration
	cfg, loadErr := config.Load(configFile)
	if loadErr != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	logger, err := applog.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Sync()

	if loadErr != nil {
		logger.Warn("failed to load config, using defaults", zap.String("file", configFile), zap.Error(loadErr))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := auth.Bootstrap(ctx, database, cfg.Admin, cfg.Security.BcryptCost, logger); err != nil {
		return fmt.Errorf("failed to bootstrap database: %w", err)
	}

	creds := auth.NewCredentials(database, cfg.Security.BcryptCost, logger)

	authKey := []byte(cfg.Secret)
	if len(authKey) == 0 {
		authKey = securecookie.GenerateRandomKey(64)
		logger.Warn("no secret configured, sessions will not survive a restart")
	}

	// Initialize session store
	sessionStore := security.NewSessionStore(database, creds, security.SessionOptions{
		CookieName:    cfg.Session.CookieName,
		Lifetime:      cfg.Session.Lifetime,
		RememberFor:   cfg.Session.RememberFor,
		Secure:        cfg.Session.SecureCookie,
		AuthKey:       authKey,
		EncryptionKey: []byte(cfg.Session.EncryptionKey),
	}, abtime.NewRealTime(), logger)

	view, err := render.New(logger)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// Setup router
	r := router.Setup(database, creds, sessionStore, view, cfg.Admin.Username, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown did not complete", zap.Error(err))
		}
	}()

	// Start server
	logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("db_driver", database.Dialect()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
