// Package middlewarectx содержит HTTP middleware аутентификации и
// сопутствующие значения контекста запроса.
//
// AuthMiddleware проверяет сессионный токен identity-провайдера в заголовке
// Authorization и кладёт в контекст личность пользователя вместе с
// request-scoped кэшем для JIT-провижининга. В случае ошибки проверки
// возвращает HTTP 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-sync/internal/http/response"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sl"
	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// identityKey — ключ проверенной личности в контексте.
	identityKey Key = "identity"
	// userCacheKey — ключ request-scoped кэша пользователя.
	userCacheKey Key = "userCache"
)

// TokenParser описывает разбор и проверку сессионного токена.
type TokenParser interface {
	ParseToken(tokenStr string) (*models.Identity, error)
}

// AuthMiddleware возвращает HTTP middleware, который проверяет сессионный
// токен в заголовке Authorization.
//
// Если токен валиден, в контекст добавляются личность пользователя и
// кэш запроса, иначе возвращается HTTP 401 Unauthorized.
func AuthMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AuthMiddleware"
			authHeader := r.Header.Get("Authorization")

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Unauthorized"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			ident, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired session token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Unauthorized"))
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, ident)
			ctx = context.WithValue(ctx, userCacheKey, NewUserCache())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext возвращает проверенную личность текущего запроса.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*models.Identity)
	return ident, ok
}
