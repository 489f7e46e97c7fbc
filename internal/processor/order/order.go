package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/lib/logger/sl"
	wp "github.com/comercio/order-session/lib/workerpool"
)

type Storage interface {
	ArchiveOrder(ctx context.Context, event *models.OrderEvent) error
}

type IPool interface {
	Create()
	Handle(context.Context, *sarama.ConsumerMessage) error
	Wait()
}

// Processor архивирует события заказов: читает их из eventChan, батчами
// прогоняет через пул воркеров в Postgres и возвращает обработанные
// сообщения в commitChan для коммита оффсетов.
type Processor struct {
	Storage    Storage
	eventChan  <-chan *sarama.ConsumerMessage
	commitChan chan<- *sarama.ConsumerMessage
	log        *slog.Logger
}

func New(
	storage Storage,
	eventChan <-chan *sarama.ConsumerMessage,
	commitChan chan<- *sarama.ConsumerMessage,
	log *slog.Logger,
) *Processor {
	return &Processor{
		Storage:    storage,
		eventChan:  eventChan,
		commitChan: commitChan,
		log:        log,
	}
}

func (p *Processor) ProcessEvents(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	const fn = "processor.order.ProcessEvents"
	log := p.log.With("fn", fn)

	events := make([]*sarama.ConsumerMessage, 0, wp.MaxWorkersCount)

	pool := wp.New(p.archiveEvent)

	for {
		select {
		case <-ctx.Done():
			if len(events) != 0 {
				p.processBatch(ctx, events, pool)
			}

			log.Info("stopping event processing by context")
			return

		case event := <-p.eventChan:
			events = append(events, event)

			if len(events) == wp.MaxWorkersCount {
				p.processBatch(ctx, events, pool)

				events = make([]*sarama.ConsumerMessage, 0, wp.MaxWorkersCount)
			}
		}
	}
}

func (p *Processor) processBatch(ctx context.Context, events []*sarama.ConsumerMessage, pool IPool) {
	pool.Create()

	wg := &sync.WaitGroup{}

	for _, event := range events {
		wg.Add(1)

		go func(currentEvent *sarama.ConsumerMessage) {
			defer wg.Done()

			err := pool.Handle(ctx, currentEvent)
			if err != nil {
				p.log.Error("failed to handle order event", sl.Err(err))
			} else {
				p.commitChan <- currentEvent
			}
		}(event)
	}

	wg.Wait()
	pool.Wait()
}

func (p *Processor) archiveEvent(ctx context.Context, msg *sarama.ConsumerMessage) error {
	p.log.Info("received new order event")

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		p.log.Error("can't unmarshal json", sl.Err(err))

		return fmt.Errorf("can't unmarshal json: %v", err)
	}

	p.log.Info("archiving order event", slog.String("order_id", event.OrderID))

	if err := p.Storage.ArchiveOrder(ctx, &event); err != nil {
		p.log.Error("failed to archive order event", sl.Err(err))

		return fmt.Errorf("failed to archive order event: %v", err)
	}

	p.log.Info("archiving was successful")

	return nil
}
