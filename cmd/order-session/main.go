// package main является точкой входа сервиса сессий заказов.
// Сервис держит состояние незавершенных заказов в Redis, оркестрирует
// вызовы коммерческого шлюза (каталог, скидки, подтверждение цены,
// черновики, создание заказа) и публикует события созданных заказов
// в Kafka. Поддерживается graceful shutdown по SIGINT/SIGTERM.
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

	"github.com/comercio/order-session/internal/checkout"
	"github.com/comercio/order-session/internal/config"
	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/http-server/router"
	"github.com/comercio/order-session/internal/session"
	"github.com/comercio/order-session/internal/storage/kafka"
	"github.com/comercio/order-session/internal/storage/redis"
	"github.com/comercio/order-session/lib/logger/sl"
	"github.com/comercio/order-session/lib/logger/slogpretty"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.MustLoad()

	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting order session service", slog.String("env", cfg.Env))

	store, err := redis.New(ctx, cfg.Redis, cfg.Session.TTL)
	if err != nil {
		log.Error("failed to init session store", sl.Err(err))
		os.Exit(1)
	}

	log.Info("session store init successful")

	gw := gateway.New(cfg.Gateway)

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Error("failed to init producer", sl.Err(err))
		os.Exit(1)
	}

	log.Info("producer init successful")

	sessions := session.NewManager(gw, store, cfg.Session.DebounceWindow, log)
	svc := checkout.New(gw, sessions, producer, log)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router.New(log, sessions, svc, gw),
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

	log.Info("server started", slog.String("address", cfg.HTTPServer.Address))

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigchan:
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", sl.Err(err))
	}

	log.Info("closing producer")
	if err := producer.Close(); err != nil {
		log.Error("failed to close producer", sl.Err(err))
	}
}
