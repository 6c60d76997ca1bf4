// main.go
//
// Entry point for the age-guessing server.
// Flow:
//   - Load .env and read configuration.
//   - Configure zerolog (level, optional console writer).
//   - Open SQLite, apply embedded migrations.
//   - Serve HTTP until SIGINT/SIGTERM, then shut down gracefully.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/guessage/assets"
	"github.com/robalobadob/guessage/internal/history"
	"github.com/robalobadob/guessage/internal/httpserver"
	"github.com/robalobadob/guessage/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	setupLogging(cfg)

	if cfg.Production && cfg.JWTSecret == "dev_secret_change_me" {
		log.Warn().Msg("JWT_SECRET is the development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func setupLogging(cfg config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// run opens the database, serves HTTP and shuts down when ctx is cancelled.
func run(ctx context.Context, cfg config) error {
	db, err := history.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := history.Migrate(ctx, db, assets.Migrations()); err != nil {
		return err
	}

	srv := httpserver.New(httpserver.Options{
		JWTSecret:    cfg.JWTSecret,
		JWTExpiry:    cfg.JWTExpiry,
		CookieName:   cfg.CookieName,
		ClientOrigin: cfg.ClientOrigin,
		Secure:       cfg.Production,
		DefaultMax:   cfg.GuessMax,
	}, store.NewMemoryStore(), history.NewStore(db))

	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Int("max", cfg.GuessMax).Msg("starting guessage server")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
