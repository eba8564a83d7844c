package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identityTestSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

func signIdentity(t *testing.T, secret, id, timestamp string, body []byte) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(secret[len("whsec_"):])
	require.NoError(t, err)
	mac := hmac.New(sha256.New, raw)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestIdentityVerifier(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	timestamp := fmt.Sprintf("%d", now.Unix())
	validSig := signIdentity(t, identityTestSecret, "msg_1", timestamp, body)

	tests := []struct {
		name      string
		id        string
		timestamp string
		signature string
		wantErr   error
	}{
		{
			name:      "валидная подпись",
			id:        "msg_1",
			timestamp: timestamp,
			signature: "v1," + validSig,
			wantErr:   nil,
		},
		{
			name:      "валидная подпись среди нескольких",
			id:        "msg_1",
			timestamp: timestamp,
			signature: "v1,bm90LXRoZS1zaWc= v1," + validSig,
			wantErr:   nil,
		},
		{
			name:      "отсутствует заголовок id",
			id:        "",
			timestamp: timestamp,
			signature: "v1," + validSig,
			wantErr:   ErrMissingHeaders,
		},
		{
			name:      "отсутствует заголовок подписи",
			id:        "msg_1",
			timestamp: timestamp,
			signature: "",
			wantErr:   ErrMissingHeaders,
		},
		{
			name:      "подпись не сходится",
			id:        "msg_1",
			timestamp: timestamp,
			signature: "v1,bm90LXRoZS1zaWc=",
			wantErr:   ErrSignatureInvalid,
		},
		{
			name:      "подпись от другого id",
			id:        "msg_2",
			timestamp: timestamp,
			signature: "v1," + validSig,
			wantErr:   ErrSignatureInvalid,
		},
		{
			name:      "неизвестная версия подписи",
			id:        "msg_1",
			timestamp: timestamp,
			signature: "v2," + validSig,
			wantErr:   ErrSignatureInvalid,
		},
		{
			name:      "нечисловая метка времени",
			id:        "msg_1",
			timestamp: "not-a-number",
			signature: "v1," + validSig,
			wantErr:   ErrSignatureInvalid,
		},
		{
			name:      "метка времени слишком старая",
			id:        "msg_1",
			timestamp: fmt.Sprintf("%d", now.Add(-6*time.Minute).Unix()),
			signature: "v1," + validSig,
			wantErr:   ErrSignatureInvalid,
		},
		{
			name:      "метка времени из будущего",
			id:        "msg_1",
			timestamp: fmt.Sprintf("%d", now.Add(6*time.Minute).Unix()),
			signature: "v1," + validSig,
			wantErr:   ErrSignatureInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewIdentityVerifier(identityTestSecret)
			require.NoError(t, err)
			v.now = func() time.Time { return now }

			err = v.Verify(body, tt.id, tt.timestamp, tt.signature)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestIdentityVerifier_WrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"type":"user.created"}`)
	timestamp := fmt.Sprintf("%d", now.Unix())
	sig := signIdentity(t, identityTestSecret, "msg_1", timestamp, body)

	v, err := NewIdentityVerifier("whsec_b3RoZXItc2VjcmV0LWtleS12YWx1ZQ==")
	require.NoError(t, err)
	v.now = func() time.Time { return now }

	assert.ErrorIs(t, v.Verify(body, "msg_1", timestamp, "v1,"+sig), ErrSignatureInvalid)
}

func TestNewIdentityVerifier_BadSecret(t *testing.T) {
	_, err := NewIdentityVerifier("whsec_%%%not-base64%%%")
	assert.Error(t, err)
}
