package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const paymentTestSecret = "whsec_payment_test_secret"

func signPayment(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaymentVerifier(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	timestamp := fmt.Sprintf("%d", now.Unix())
	validSig := signPayment(paymentTestSecret, timestamp, body)

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{
			name:    "валидная подпись",
			header:  fmt.Sprintf("t=%s,v1=%s", timestamp, validSig),
			wantErr: nil,
		},
		{
			name:    "валидная подпись среди нескольких",
			header:  fmt.Sprintf("t=%s,v1=deadbeef,v1=%s", timestamp, validSig),
			wantErr: nil,
		},
		{
			name:    "пустой заголовок",
			header:  "",
			wantErr: ErrMissingHeaders,
		},
		{
			name:    "подпись не сходится",
			header:  fmt.Sprintf("t=%s,v1=deadbeef", timestamp),
			wantErr: ErrSignatureInvalid,
		},
		{
			name:    "нет метки времени",
			header:  "v1=" + validSig,
			wantErr: ErrSignatureInvalid,
		},
		{
			name:    "нет подписи",
			header:  "t=" + timestamp,
			wantErr: ErrSignatureInvalid,
		},
		{
			name:    "мусор в заголовке",
			header:  "garbage",
			wantErr: ErrSignatureInvalid,
		},
		{
			name: "метка времени слишком старая",
			header: fmt.Sprintf("t=%d,v1=%s",
				now.Add(-6*time.Minute).Unix(),
				signPayment(paymentTestSecret, fmt.Sprintf("%d", now.Add(-6*time.Minute).Unix()), body)),
			wantErr: ErrSignatureInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewPaymentVerifier(paymentTestSecret)
			v.now = func() time.Time { return now }

			err := v.Verify(body, tt.header)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPaymentVerifier_BodyTampered(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"id":"evt_1"}`)
	timestamp := fmt.Sprintf("%d", now.Unix())
	header := fmt.Sprintf("t=%s,v1=%s", timestamp, signPayment(paymentTestSecret, timestamp, body))

	v := NewPaymentVerifier(paymentTestSecret)
	v.now = func() time.Time { return now }

	assert.NoError(t, v.Verify(body, header))
	assert.ErrorIs(t, v.Verify([]byte(`{"id":"evt_2"}`), header), ErrSignatureInvalid)
}
