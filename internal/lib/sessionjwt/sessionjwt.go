// Package sessionjwt реализует разбор и генерацию сессионных токенов
// внешнего identity-провайдера.
//
// Токен — это JWT (HS256), которым провайдер подписывает сессию уже
// аутентифицированного пользователя. Subject токена — внешний идентификатор
// пользователя, дополнительные claims несут email, имя и аватар.
package sessionjwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// SessionClaims описывает данные сессии, хранящиеся в JWT.
type SessionClaims struct {
	Email                string `json:"email"`                // Электронная почта пользователя
	Name                 string `json:"name,omitempty"`       // Отображаемое имя
	AvatarURL            string `json:"avatar_url,omitempty"` // Ссылка на аватар
	jwt.RegisteredClaims        // Стандартные claims JWT (Subject, ExpiresAt и пр.)
}

// Maker разбирает и (для тестов и локальной разработки) генерирует токены.
type Maker struct {
	secretKey string        // Секретный ключ, общий с identity-провайдером
	tokenTTL  time.Duration // Время жизни генерируемых токенов
}

// NewMaker создаёт новый Maker на основе секретного ключа и TTL.
func NewMaker(secretKey string, ttl time.Duration) *Maker {
	return &Maker{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}

// GenerateToken создает сессионный токен для указанной личности.
func (m *Maker) GenerateToken(ident models.Identity) (string, error) {
	claims := SessionClaims{
		Email: ident.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenTTL)),
		},
	}
	if ident.Name != nil {
		claims.Name = *ident.Name
	}
	if ident.AvatarURL != nil {
		claims.AvatarURL = *ident.AvatarURL
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secretKey))
}

// ParseToken проверяет подпись и валидность токена и возвращает личность
// пользователя. Допускается только алгоритм HS256.
func (m *Maker) ParseToken(tokenStr string) (*models.Identity, error) {
	const op = "sessionjwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(m.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: token without subject", op)
	}

	ident := &models.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
	}
	if claims.Name != "" {
		ident.Name = &claims.Name
	}
	if claims.AvatarURL != "" {
		ident.AvatarURL = &claims.AvatarURL
	}
	return ident, nil
}
