package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PaymentVerifier проверяет подписи webhook платёжного провайдера.
//
// Схема: заголовок вида "t=<unix>,v1=<hex>[,v1=<hex>...]"; подписывается
// строка "<t>.<body>" ключом HMAC-SHA256, подпись в hex.
type PaymentVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time // Подменяется в тестах
}

// NewPaymentVerifier создаёт верификатор с секретом провайдера.
func NewPaymentVerifier(secret string) *PaymentVerifier {
	return &PaymentVerifier{
		secret:    secret,
		tolerance: defaultTolerance,
		now:       time.Now,
	}
}

// Verify проверяет подпись из заголовка по сырому телу запроса.
// Пустой заголовок — ErrMissingHeaders.
func (v *PaymentVerifier) Verify(body []byte, header string) error {
	if header == "" {
		return ErrMissingHeaders
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return ErrSignatureInvalid
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	fmt.Fprintf(mac, "%s.", timestamp)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range candidates {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrSignatureInvalid
}
