// Package redis реализует хранилище снапшотов сессий заказов в Redis.
// Сессия живет между HTTP-запросами и на нескольких инстансах сервиса,
// поэтому хранится не в памяти процесса, а в Redis с ограниченным TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/comercio/order-session/internal/config"
	"github.com/comercio/order-session/internal/session"
	"github.com/comercio/order-session/internal/storage"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "order-session:"

// Client является оберткой над стандартным клиентом `redis.Client`,
// что позволяет в будущем расширить его функциональность, не изменяя
// публичный API пакета.
type Client struct {
	*redis.Client
	ttl time.Duration
}

// New создает и настраивает новый клиент для подключения к Redis.
// Функция проверяет соединение с помощью команды PING и возвращает ошибку,
// если Redis недоступен.
func New(ctx context.Context, cfg config.Redis, ttl time.Duration) (*Client, error) {
	address := net.JoinHostPort(cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Проверяем, что соединение с Redis установлено и сервер отвечает.
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("can't ping redis: %v", err)
	}

	return &Client{Client: client, ttl: ttl}, nil
}

// SaveSession сохраняет снапшот сессии. Каждое сохранение продлевает TTL:
// живая сессия не должна истечь под пользователем.
func (c *Client) SaveSession(ctx context.Context, s *session.Session) error {
	const fn = "storage.redis.SaveSession"

	sessionBytes, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: can't marshal session: %v", fn, err)
	}

	if err := c.Set(ctx, sessionKeyPrefix+s.ID, sessionBytes, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: can't set session: %v", fn, err)
	}

	return nil
}

// GetSession извлекает снапшот сессии по идентификатору.
// Если ключ не найден, возвращается `storage.ErrNoSession`.
func (c *Client) GetSession(ctx context.Context, id string) (*session.Session, error) {
	const fn = "storage.redis.GetSession"

	sessionJSON, err := c.Get(ctx, sessionKeyPrefix+id).Result()
	// `redis.Nil` - это специальная ошибка, означающая, что ключ не найден.
	// Мы преобразуем ее в нашу доменную ошибку `storage.ErrNoSession`.
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("%s: can't get session: %v", fn, err)
	}

	s := &session.Session{}
	if err := json.Unmarshal([]byte(sessionJSON), s); err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal session json: %v", fn, err)
	}

	return s, nil
}

// DeleteSession удаляет снапшот сессии. Вызывается после успешной
// отправки заказа: данные сессии после этого никому не нужны.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	const fn = "storage.redis.DeleteSession"

	if err := c.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("%s: can't delete session: %v", fn, err)
	}

	return nil
}
