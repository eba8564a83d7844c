package middlewarectx_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/saas-sync/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// ParserMock реализует интерфейс middlewarectx.TokenParser
type ParserMock struct {
	mock.Mock
}

func (m *ParserMock) ParseToken(tokenStr string) (*models.Identity, error) {
	args := m.Called(tokenStr)
	ident, _ := args.Get(0).(*models.Identity)
	return ident, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		mockIdent      *models.Identity
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "token validation error",
			authHeader:     "Bearer token",
			mockErr:        errors.New("token expired"),
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "valid token",
			authHeader:     "Bearer token",
			mockIdent:      &models.Identity{ID: "user_1", Email: "ada@example.com"},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parserMock := new(ParserMock)
			if tt.mockIdent != nil || tt.mockErr != nil {
				parserMock.On("ParseToken", "token").Return(tt.mockIdent, tt.mockErr)
			}

			handlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				ident, ok := middlewarectx.IdentityFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "user_1", ident.ID)
				_, ok = middlewarectx.UserCacheFromContext(r.Context())
				assert.True(t, ok)
				w.WriteHeader(http.StatusOK)
			})

			mw := middlewarectx.AuthMiddleware(parserMock, newNoopLogger())(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			mw.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatusCode, w.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			parserMock.AssertExpectations(t)
		})
	}
}
