package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ecoroute/internal/config"
	"ecoroute/internal/database"
	"ecoroute/internal/geo"
	"ecoroute/internal/geocode"
	"ecoroute/internal/handler"
	"ecoroute/internal/identity"
	"ecoroute/internal/intake"
	"ecoroute/internal/jwtauth"
	"ecoroute/internal/notify"
	"ecoroute/internal/request"
	"ecoroute/internal/session"
	"ecoroute/internal/upload"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				zap.L().Warn("error closing database connection", zap.Error(err))
			}
		}()
		zap.L().Info("database connection established")

		if !skipMigrations {
			if err := runMigrations(db, migrationsPath(cfg.Database.MigrationsPath)); err != nil {
				return err
			}
		}

		router, cleanup, err := buildRouter(ctx, cfg, db)
		if err != nil {
			return err
		}
		defer cleanup()

		server := &http.Server{
			Addr:    ":" + strconv.Itoa(cfg.Server.Port),
			Handler: router,
		}

		serverErr := make(chan error, 1)
		go func() {
			zap.L().Info("ecoroute server starting",
				zap.Int("port", cfg.Server.Port),
				zap.String("env", cfg.Environment),
			)
			serverErr <- server.ListenAndServe()
		}()

		select {
		case err := <-serverErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server error")
			}
			return nil
		case <-ctx.Done():
		}

		zap.L().Info("shutdown signal received, waiting for in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("graceful shutdown failed, forcing close", zap.Error(err))
			if err := server.Close(); err != nil {
				return eris.Wrap(err, "forced shutdown failed")
			}
		}

		zap.L().Info("server shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires every component from cfg. The returned cleanup closes
// clients opened here.
func buildRouter(ctx context.Context, cfg *config.Config, db *database.DB) (http.Handler, func(), error) {
	cleanup := func() {}

	registry, err := geo.LoadRegistry(cfg.Centers.RegistryPath)
	if err != nil {
		return nil, cleanup, err
	}
	zap.L().Info("center registry loaded",
		zap.Int("garbage", len(registry.Garbage)),
		zap.Int("recycling", len(registry.Recycling)),
	)

	codec, err := jwtauth.NewCodec(jwtauth.Config{
		Secret: cfg.Session.TokenSecret,
		TTL:    cfg.Session.TokenTTL,
		Issuer: "ecoroute",
	})
	if err != nil {
		return nil, cleanup, err
	}

	identities := identity.NewManager(identity.NewDatastore(db.DB), identity.NewBcryptHasher(0), cfg.Session.AdminPasskey)
	requests := request.NewManager(request.NewDatastore(db.DB))

	var lookup geocode.Lookup = geocode.NewNominatimClient(cfg.Geocode.UserAgent,
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
	)
	if cfg.Geocode.RedisURL != "" {
		rdb, err := geocode.NewRedisClient(ctx, cfg.Geocode.RedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { _ = rdb.Close() }
		lookup = geocode.NewCachedLookup(lookup, rdb, cfg.Geocode.CacheTTL)
		zap.L().Info("geocode cache enabled")
	}

	transport := notify.NewSMTPTransport(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Timeout:  cfg.Mail.Timeout,
	})
	dispatcher := notify.NewDispatcher(transport, cfg.Mail.From, cfg.Mail.Timeout)

	receiver, err := upload.NewReceiver(cfg.Upload.Dir, cfg.Upload.MaxBytes)
	if err != nil {
		return nil, cleanup, err
	}

	pipeline := intake.NewPipeline(registry, geocode.NewResolver(lookup), requests, dispatcher)

	gate := session.NewGate(codec, identities,
		session.WithAdminRevalidate(cfg.Session.AdminRevalidate),
		session.WithSecureCookies(cfg.IsProduction()),
	)

	router := handler.NewRouter(handler.Deps{
		Environment:    cfg.Environment,
		DB:             db,
		Gate:           gate,
		Tokens:         codec,
		Identities:     identities,
		Requests:       requests,
		Receiver:       receiver,
		Pipeline:       pipeline,
		Registry:       registry,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	return router, cleanup, nil
}
