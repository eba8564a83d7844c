package userme

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/saas-sync/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-sync/internal/lib/sessionjwt"
	"github.com/magabrotheeeer/saas-sync/internal/models"
)

// MockProvisioner реализует интерфейс userme.UserProvisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) EnsureUser(ctx context.Context, ident *models.Identity) (*models.UserWithSubscription, error) {
	args := m.Called(ctx, ident)
	u, _ := args.Get(0).(*models.UserWithSubscription)
	return u, args.Error(1)
}

func TestUserMeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	name := "Ada Lovelace"
	user := &models.UserWithSubscription{
		User: models.User{ID: "u1", IdentityID: "user_1", Email: "ada@example.com", Name: &name},
		Subscription: &models.Subscription{
			ID:     "s1",
			UserID: "u1",
			Status: models.SubscriptionStatusActive,
		},
	}

	tests := []struct {
		name           string
		withIdentity   bool
		setupMock      func(*MockProvisioner)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:         "пользователь с подпиской",
			withIdentity: true,
			setupMock: func(p *MockProvisioner) {
				p.On("EnsureUser", mock.Anything, mock.Anything).Return(user, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"email":"ada@example.com"`,
		},
		{
			name:           "нет личности в контексте",
			withIdentity:   false,
			setupMock:      func(_ *MockProvisioner) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:         "ошибка хранилища",
			withIdentity: true,
			setupMock: func(p *MockProvisioner) {
				p.On("EnsureUser", mock.Anything, mock.Anything).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"could not load user"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockProvisioner := new(MockProvisioner)
			tt.setupMock(mockProvisioner)

			handler := New(logger, mockProvisioner)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.withIdentity {
				req = requestWithIdentity(t, req, &models.Identity{ID: "user_1", Email: "ada@example.com"})
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockProvisioner.AssertExpectations(t)
		})
	}
}

func TestUserMeHandler_NullSubscription(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	mockProvisioner := new(MockProvisioner)
	mockProvisioner.On("EnsureUser", mock.Anything, mock.Anything).Return(&models.UserWithSubscription{
		User: models.User{ID: "u1", IdentityID: "user_1", Email: "ada@example.com"},
	}, nil)

	handler := New(logger, mockProvisioner)
	req := requestWithIdentity(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil),
		&models.Identity{ID: "user_1", Email: "ada@example.com"})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	// Подписки нет — поле отдается явным null
	assert.Contains(t, w.Body.String(), `"subscription":null`)
}

func requestWithIdentity(t *testing.T, req *http.Request, ident *models.Identity) *http.Request {
	t.Helper()
	maker := sessionjwt.NewMaker("test-secret", time.Hour)
	token, err := maker.GenerateToken(*ident)
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	var out *http.Request
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { out = r })
	middlewarectx.AuthMiddleware(maker, logger)(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.NotNil(t, out)
	return out
}
