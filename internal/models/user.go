// Package models содержит доменные структуры сервиса: пользователей,
// подписки и сообщения уведомлений. Структуры используются в бизнес-логике
// и при работе с хранилищем.
package models

import "time"

// User представляет локальную учётную запись приложения.
// Запись всегда привязана к идентификатору внешнего identity-провайдера.
type User struct {
	ID         string    `json:"id"`         // Локальный идентификатор (uuid)
	IdentityID string    `json:"identityId"` // Идентификатор во внешнем identity-провайдере, уникален
	Email      string    `json:"email"`      // Электронная почта, уникальна
	Name       *string   `json:"name"`       // Отображаемое имя, может отсутствовать
	AvatarURL  *string   `json:"avatarUrl"`  // Ссылка на аватар, может отсутствовать
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Identity описывает проверенную личность из сессионного токена
// identity-провайдера. Используется JIT-провижинингом.
type Identity struct {
	ID        string // Внешний идентификатор пользователя
	Email     string
	Name      *string
	AvatarURL *string
}

// UserWithSubscription объединяет пользователя с его подпиской.
// Subscription равен nil, если подписки ещё нет.
type UserWithSubscription struct {
	User
	Subscription *Subscription `json:"subscription"`
}
