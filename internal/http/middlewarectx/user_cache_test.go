package middlewarectx_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-sync/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-sync/internal/models"
)

func TestUserCache_LoadsOnce(t *testing.T) {
	cache := middlewarectx.NewUserCache()
	var calls int64
	user := &models.UserWithSubscription{
		User: models.User{ID: "u1", IdentityID: "user_1"},
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.Do("user_1", func() (*models.UserWithSubscription, error) {
				atomic.AddInt64(&calls, 1)
				return user, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, user, got)
		}()
	}
	wg.Wait()

	// Загрузка выполняется ровно один раз на личность
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestUserCache_DistinctIdentities(t *testing.T) {
	cache := middlewarectx.NewUserCache()
	var calls int64
	load := func(id string) func() (*models.UserWithSubscription, error) {
		return func() (*models.UserWithSubscription, error) {
			atomic.AddInt64(&calls, 1)
			return &models.UserWithSubscription{User: models.User{IdentityID: id}}, nil
		}
	}

	first, err := cache.Do("user_1", load("user_1"))
	require.NoError(t, err)
	second, err := cache.Do("user_2", load("user_2"))
	require.NoError(t, err)

	assert.Equal(t, "user_1", first.IdentityID)
	assert.Equal(t, "user_2", second.IdentityID)
	assert.Equal(t, int64(2), calls)
}

func TestUserCache_CachesError(t *testing.T) {
	cache := middlewarectx.NewUserCache()
	var calls int64
	load := func() (*models.UserWithSubscription, error) {
		atomic.AddInt64(&calls, 1)
		return nil, errors.New("db error")
	}

	_, err := cache.Do("user_1", load)
	assert.Error(t, err)
	_, err = cache.Do("user_1", load)
	assert.Error(t, err)
	assert.Equal(t, int64(1), calls)
}
