// Package workerpool реализует ограниченный пул воркеров на токенах.
// Архиватор заказов прогоняет через него батчи событий: одновременно
// обрабатывается не больше MaxWorkersCount событий, остальные ждут
// освободившийся слот.
package workerpool

import (
	"context"
)

const MaxWorkersCount = 10

type token struct{}

type Pool[Data any] struct {
	tokens  chan token
	handler func(ctx context.Context, data Data) error
}

func New[Data any](handler func(ctx context.Context, data Data) error) *Pool[Data] {
	return &Pool[Data]{
		tokens:  make(chan token, MaxWorkersCount),
		handler: handler,
	}
}

// Create наполняет пул токенами перед обработкой очередного батча.
func (p *Pool[Data]) Create() {
	for i := 0; i < MaxWorkersCount; i++ {
		p.tokens <- token{}
	}
}

// Handle обрабатывает одно событие, заняв слот пула на время обработки.
func (p *Pool[Data]) Handle(ctx context.Context, data Data) error {
	t := <-p.tokens

	defer func() { p.tokens <- t }()

	return p.handler(ctx, data)
}

// Wait забирает все токены обратно: возвращается, когда обработка
// батча полностью завершена.
func (p *Pool[Data]) Wait() {
	for i := 0; i < MaxWorkersCount; i++ {
		<-p.tokens
	}
}
