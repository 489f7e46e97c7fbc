package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/comercio/order-session/internal/config"
	"github.com/comercio/order-session/internal/models"
)

// Producer публикует события о созданных заказах и черновиках.
// Сервис сессий не требует подтверждения от консьюмеров: событие
// отправляется синхронно, чтобы вернуть ошибку вызывающему коду,
// но неудача публикации не отменяет уже созданный заказ.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

func NewProducer(cfg config.Kafka, log *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()

	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Producer.Acks)
	config.Producer.Idempotent = cfg.Producer.EnableIdempotence
	config.Net.MaxOpenRequests = 1
	config.Producer.Retry.Max = cfg.Producer.Retries

	p, err := sarama.NewSyncProducer(cfg.BootstrapServers, config)
	if err != nil {
		return nil, fmt.Errorf("can't create producer: %v", err)
	}

	return &Producer{
		producer: p,
		topic:    cfg.Topic,
		log:      log,
	}, nil
}

// PublishOrderEvent сериализует событие заказа и отправляет его в топик.
// Ключом сообщения является идентификатор заказа, чтобы события одного
// заказа попадали в одну партицию.
func (p *Producer) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	const fn = "storage.kafka.PublishOrderEvent"

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: can't marshal event: %v", fn, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("%s: can't send message: %v", fn, err)
	}

	p.log.Info("order event published",
		slog.String("order_id", event.OrderID),
		slog.String("kind", event.Kind),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)

	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
