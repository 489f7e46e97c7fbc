package session

import (
	"context"
	"sync"
	"time"

	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/models"
)

// ConfirmFunc запрашивает у шлюза подтверждение цены заказа.
type ConfirmFunc func(ctx context.Context, req gateway.ConfirmRequest) (*models.OrderConfirmation, error)

// ApplyFunc применяет результат подтверждения к сессии.
// seq - монотонно растущий номер запроса, по которому отбрасываются
// устаревшие ответы.
type ApplyFunc func(seq uint64, confirmation *models.OrderConfirmation, err error)

// resolver откладывает запрос подтверждения на окно дебаунса: каждое
// изменение корзины сбрасывает таймер, поэтому в шлюз уходит только
// последнее состояние в окне. Каждый запрос получает номер, контекст
// запроса в полете отменяется при постановке нового, а ответ, догнавший
// более новый запрос, отбрасывается.
type resolver struct {
	window  time.Duration
	confirm ConfirmFunc
	apply   ApplyFunc

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	inflight context.CancelFunc
}

func newResolver(window time.Duration, confirm ConfirmFunc, apply ApplyFunc) *resolver {
	return &resolver{
		window:  window,
		confirm: confirm,
		apply:   apply,
	}
}

// Poke планирует запрос подтверждения для переданного состояния корзины,
// отменяя ранее запланированный.
func (r *resolver) Poke(req gateway.ConfirmRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}

	// Правка корзины обесценивает и запрос в полете: его ответ описывал бы
	// уже не ту корзину.
	if r.inflight != nil {
		r.inflight()
		r.inflight = nil
	}

	r.timer = time.AfterFunc(r.window, func() { r.fire(req) })
}

// Stop отменяет запланированный и выполняющийся запросы.
func (r *resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.inflight != nil {
		r.inflight()
		r.inflight = nil
	}
}

func (r *resolver) fire(req gateway.ConfirmRequest) {
	r.mu.Lock()

	r.seq++
	seq := r.seq

	// Новый запрос делает ответ предыдущего бесполезным.
	if r.inflight != nil {
		r.inflight()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.inflight = cancel

	r.mu.Unlock()

	confirmation, err := r.confirm(ctx, req)

	r.mu.Lock()
	stale := seq != r.seq
	r.mu.Unlock()

	if stale || ctx.Err() != nil {
		return
	}

	r.apply(seq, confirmation, err)
}
