// Package repository реализует хранилище данных на основе PostgreSQL
// для учётных записей пользователей и их подписок. Предоставляет методы
// создания, чтения, обновления и удаления записей с явной таксономией
// ошибок для конфликтов уникальности и отсутствующих строк.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Ошибки хранилища, различимые бизнес-логикой.
var (
	// ErrNotFound строка с указанным ключом отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists вставка нарушила бы уникальность естественного ключа.
	// Возвращается и проигравшему конкурентному писателю.
	ErrAlreadyExists = errors.New("already exists")
)

// uniqueViolation код PostgreSQL для нарушения уникального ограничения.
const uniqueViolation = "23505"

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с пользователями и подписками.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Ping проверяет готовность базы данных, используется health-эндпоинтом.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.Ping"
	var one int
	if err := s.DB.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// isUniqueViolation проверяет, что ошибка — нарушение уникальности.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
