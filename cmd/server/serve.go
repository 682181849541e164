package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"clonerp/internal/app"
	"clonerp/internal/auth"
	httpx "clonerp/internal/http"
	"clonerp/internal/pages"
	"clonerp/internal/requestlog"
	"clonerp/internal/store"
	"clonerp/internal/topics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// openStore loads config, the logger and the store shared by every command.
func openStore(ctx context.Context) (app.Config, zerolog.Logger, *store.Store, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return cfg, zerolog.Nop(), nil, err
	}
	logger := app.NewLogger(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		return cfg, logger, nil, err
	}
	backend, err := store.OpenBackend(ctx, cfg)
	if err != nil {
		return cfg, logger, nil, err
	}
	st, err := store.Open(ctx, backend, logger)
	if err != nil {
		_ = backend.Close()
		return cfg, logger, nil, err
	}
	return cfg, logger, st, nil
}

func newAuth(cfg app.Config, st *store.Store, logger zerolog.Logger) *auth.Service {
	return auth.NewService(st.Users, auth.Options{
		Secret:          cfg.SessionSecret,
		SessionLifetime: cfg.SessionLifetime,
		BcryptCost:      cfg.BcryptCost,
		Logger:          logger,
	})
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("close store")
		}
	}()
	logger.Info().Stringer("config", cfg).Msg("configuration loaded")
	if cfg.InsecureSecret() {
		logger.Warn().Msg("SESSION_SECRET is not set, session cookies are signed with the built-in development secret")
	}

	catalogue, err := pages.Load(cfg.PagesFile)
	if err != nil {
		return err
	}

	srv := httpx.NewServer(httpx.Deps{
		Auth:   newAuth(cfg, st, logger),
		Topics: topics.NewRegistry(st.Topics, logger, nil),
		Logs:   requestlog.NewRecorder(st.Logs, logger, nil),
		Pages:  catalogue,
		Cfg:    cfg,
		Logger: logger,
	})
	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		errc <- hs.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-sigc:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
