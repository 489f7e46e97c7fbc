// package main является точкой входа архиватора заказов: консьюмер
// читает события созданных заказов из Kafka и складывает их в архивную
// таблицу PostgreSQL батчами через пул воркеров.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/comercio/order-session/internal/config"
	processor "github.com/comercio/order-session/internal/processor/order"
	"github.com/comercio/order-session/internal/storage/kafka"
	"github.com/comercio/order-session/internal/storage/postgres"
	"github.com/comercio/order-session/lib/logger/sl"
	"github.com/comercio/order-session/lib/logger/slogpretty"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	wg := &sync.WaitGroup{}

	cfg := config.MustLoad()

	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting order archiver", slog.String("env", cfg.Env))

	storage, err := postgres.New(cfg.Postgres, log)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	log.Info("storage init successful")

	eventChan := make(chan *sarama.ConsumerMessage)
	commitChan := make(chan *sarama.ConsumerMessage)

	p := processor.New(storage, eventChan, commitChan, log)

	wg.Add(1)
	go p.ProcessEvents(ctx, wg)

	c, err := kafka.NewConsumer(cfg.Kafka, eventChan, commitChan, log)
	if err != nil {
		log.Error("failed to init consumer", sl.Err(err))
		os.Exit(1)
	}

	log.Info("consumer init successful")

	log.Info("listening messages")

	wg.Add(1)
	go c.ProcessMessages(ctx, cfg.Kafka.Topic, wg)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	<-sigchan
	cancel()

	wg.Wait()

	log.Info("shutting down consumer")
	c.Consumer.Close()
}
