package identity

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-sync/internal/lib/webhooksig"
	"github.com/magabrotheeeer/saas-sync/internal/models"
	identityservice "github.com/magabrotheeeer/saas-sync/internal/services/identity"
)

const testSecret = "whsec_dGVzdC1zZWNyZXQtZm9yLWlkZW50aXR5"

// MockService реализует интерфейс identity.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ProcessEvent(ctx context.Context, evt *models.IdentityEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// MockDeduper реализует интерфейс identity.EventDeduper
type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) SeenEvent(ctx context.Context, provider, eventID string) (bool, error) {
	args := m.Called(ctx, provider, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeduper) MarkEvent(ctx context.Context, provider, eventID string) error {
	args := m.Called(ctx, provider, eventID)
	return args.Error(0)
}

func sign(t *testing.T, id, timestamp string, body []byte) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(testSecret[len("whsec_"):])
	require.NoError(t, err)
	mac := hmac.New(sha256.New, raw)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestIdentityWebhookHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	body := []byte(`{"type":"user.created","data":{"id":"user_1","email_addresses":[{"email_address":"ada@example.com"}]}}`)
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	tests := []struct {
		name           string
		headers        map[string]string
		setupMocks     func(*MockService, *MockDeduper)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "валидное событие применяется",
			headers: map[string]string{
				"svix-id":        "msg_1",
				"svix-timestamp": timestamp,
			},
			setupMocks: func(s *MockService, d *MockDeduper) {
				d.On("SeenEvent", mock.Anything, "identity", "msg_1").Return(false, nil)
				s.On("ProcessEvent", mock.Anything, mock.AnythingOfType("*models.IdentityEvent")).Return(nil)
				d.On("MarkEvent", mock.Anything, "identity", "msg_1").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
		},
		{
			name:           "нет заголовков svix",
			headers:        map[string]string{},
			setupMocks:     func(_ *MockService, _ *MockDeduper) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Missing svix headers",
		},
		{
			name: "битая подпись",
			headers: map[string]string{
				"svix-id":        "msg_1",
				"svix-timestamp": timestamp,
				"svix-signature": "v1,Zm9yZ2VkLXNpZ25hdHVyZQ==",
			},
			setupMocks:     func(_ *MockService, _ *MockDeduper) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid signature",
		},
		{
			name: "повторная доставка",
			headers: map[string]string{
				"svix-id":        "msg_1",
				"svix-timestamp": timestamp,
			},
			setupMocks: func(_ *MockService, d *MockDeduper) {
				d.On("SeenEvent", mock.Anything, "identity", "msg_1").Return(true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
		},
		{
			name: "событие без почты",
			headers: map[string]string{
				"svix-id":        "msg_1",
				"svix-timestamp": timestamp,
			},
			setupMocks: func(s *MockService, d *MockDeduper) {
				d.On("SeenEvent", mock.Anything, "identity", "msg_1").Return(false, nil)
				s.On("ProcessEvent", mock.Anything, mock.Anything).Return(identityservice.ErrMissingEmail)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "No email found",
		},
		{
			name: "ошибка хранилища",
			headers: map[string]string{
				"svix-id":        "msg_1",
				"svix-timestamp": timestamp,
			},
			setupMocks: func(s *MockService, d *MockDeduper) {
				d.On("SeenEvent", mock.Anything, "identity", "msg_1").Return(false, nil)
				s.On("ProcessEvent", mock.Anything, mock.Anything).Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			mockDeduper := new(MockDeduper)
			tt.setupMocks(mockService, mockDeduper)

			verifier, err := webhooksig.NewIdentityVerifier(testSecret)
			require.NoError(t, err)
			handler := New(logger, mockService, verifier, mockDeduper)

			req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader(body))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			// Подпись считается по фактическим заголовкам кейса
			if _, ok := tt.headers["svix-signature"]; !ok && tt.headers["svix-id"] != "" {
				req.Header.Set("svix-signature", sign(t, tt.headers["svix-id"], tt.headers["svix-timestamp"], body))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
			mockDeduper.AssertExpectations(t)
		})
	}
}
