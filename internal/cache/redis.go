// Package cache реализует кэш на redis. Основное применение — отметки
// об уже обработанных webhook-событиях: провайдеры могут доставлять
// одно событие несколько раз, повторная доставка отвечается без похода
// в хранилище.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/saas-sync/internal/config"
)

// eventTTL время жизни отметки об обработанном событии.
const eventTTL = 24 * time.Hour

// Cache обёртка над клиентом redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

// Get пытается получить значение из кеша по ключу.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в кеш с временем жизни.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Db.Set(ctx, key, jsonData, expiration).Err()
}

// Invalidate удаляет значение из кеша по ключу.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.Db.Del(ctx, key).Err()
}

// SeenEvent сообщает, обрабатывалось ли уже webhook-событие с таким
// идентификатором у данного провайдера.
func (c *Cache) SeenEvent(ctx context.Context, provider, eventID string) (bool, error) {
	const op = "cache.SeenEvent"
	exists, err := c.Db.Exists(ctx, eventKey(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists > 0, nil
}

// MarkEvent отмечает webhook-событие обработанным.
func (c *Cache) MarkEvent(ctx context.Context, provider, eventID string) error {
	const op = "cache.MarkEvent"
	if err := c.Db.Set(ctx, eventKey(provider, eventID), 1, eventTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func eventKey(provider, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", provider, eventID)
}
