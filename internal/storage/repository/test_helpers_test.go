package repository

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSchema = `
	CREATE TABLE users (
		id VARCHAR(128) PRIMARY KEY,
		identity_id VARCHAR(255) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255),
		avatar_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE subscriptions (
		id VARCHAR(128) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		payment_customer_id VARCHAR(255) UNIQUE NOT NULL,
		payment_subscription_id VARCHAR(255) UNIQUE,
		status VARCHAR(32) NOT NULL DEFAULT 'inactive',
		price_id VARCHAR(255),
		current_period_end TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его id
func (f *TestDataFactory) CreateUser(t *testing.T, identityID, email string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, identity_id, email)
		VALUES ($1, $2, $3)`, id, identityID, email)
	require.NoError(t, err)
	return id
}

// CreateSubscription создает тестовую подписку и возвращает её id
func (f *TestDataFactory) CreateSubscription(t *testing.T, userID, customerID, providerSubID, status string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO subscriptions
		(id, user_id, payment_customer_id, payment_subscription_id, status)
		VALUES ($1, $2, $3, $4, $5)`, id, userID, customerID, providerSubID, status)
	require.NoError(t, err)
	return id
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort(nat.Port("5432/tcp")),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(3*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			if err = storage.DB.Ping(); err == nil {
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	_, err = storage.DB.Exec(testSchema)
	require.NoError(t, err, "failed to create schema")

	cleanup := func() {
		_ = storage.DB.Close()
		_ = container.Terminate(ctx)
	}
	return storage, cleanup
}
