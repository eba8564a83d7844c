package middlewarectx

import (
	"context"
	"sync"

	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// UserCache request-scoped кэш результата JIT-провижининга.
//
// Несколько вызовов в рамках одного запроса (например, из layout и из
// обработчика) схлопываются в один поход в хранилище. Кэш живёт в
// контексте запроса и умирает вместе с ним: процесс-глобальный кэш
// протекал бы между несвязанными запросами.
type UserCache struct {
	mu      sync.Mutex
	entries map[string]*userEntry
}

type userEntry struct {
	once sync.Once
	user *models.UserWithSubscription
	err  error
}

// NewUserCache создаёт пустой кэш для одного запроса.
func NewUserCache() *UserCache {
	return &UserCache{entries: make(map[string]*userEntry)}
}

// Do возвращает закэшированный результат для identityID или вычисляет
// его функцией load ровно один раз.
func (c *UserCache) Do(identityID string, load func() (*models.UserWithSubscription, error)) (*models.UserWithSubscription, error) {
	c.mu.Lock()
	entry, ok := c.entries[identityID]
	if !ok {
		entry = &userEntry{}
		c.entries[identityID] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.user, entry.err = load()
	})
	return entry.user, entry.err
}

// UserCacheFromContext возвращает кэш пользователя текущего запроса.
func UserCacheFromContext(ctx context.Context) (*UserCache, bool) {
	cache, ok := ctx.Value(userCacheKey).(*UserCache)
	return cache, ok
}
