// package main является точкой входа эмулятора коммерческого шлюза.
// Эмулятор реализует REST-контракт продакшн-шлюза поверх PostgreSQL
// и при первом запуске наполняет пустую базу сгенерированными данными.
// Используется для локальной разработки и интеграционных тестов.
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

	"github.com/comercio/order-session/internal/config"
	"github.com/comercio/order-session/internal/emulator"
	"github.com/comercio/order-session/internal/storage/postgres"
	catalogGen "github.com/comercio/order-session/lib/generator/catalog"
	"github.com/comercio/order-session/lib/logger/sl"
	"github.com/comercio/order-session/lib/logger/slogpretty"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.MustLoad()

	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting gateway emulator", slog.String("env", cfg.Env))

	storage, err := postgres.New(cfg.Postgres, log)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	log.Info("storage init successful")

	// Пустую базу наполняем фейковыми данными.
	count, err := storage.CountClients(ctx)
	if err != nil {
		log.Error("failed to check seed state", sl.Err(err))
		os.Exit(1)
	}

	if count == 0 {
		log.Info("empty database, seeding")

		if err := storage.Seed(ctx, catalogGen.GenerateSeed()); err != nil {
			log.Error("failed to seed database", sl.Err(err))
			os.Exit(1)
		}

		log.Info("seeding successful")
	}

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      emulator.NewServer(storage, log).Router(),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", sl.Err(err))
			cancel()
		}
	}()

	log.Info("emulator started", slog.String("address", cfg.HTTPServer.Address))

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigchan:
	case <-ctx.Done():
	}

	log.Info("shutting down emulator")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}
}
