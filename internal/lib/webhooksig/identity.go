// Package webhooksig проверяет подписи входящих webhook-запросов обоих
// внешних провайдеров. Проверка чистая: никаких побочных эффектов,
// никакая мутация состояния не происходит до её успеха.
//
// Подпись всегда считается по сырым байтам тела запроса. Декодировать
// JSON до проверки нельзя: пересериализация ломает подпись.
package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Ошибки проверки. Обработчики транслируют обе в HTTP 400.
var (
	// ErrMissingHeaders отсутствует обязательный заголовок подписи.
	ErrMissingHeaders = errors.New("missing signature headers")
	// ErrSignatureInvalid подпись не сошлась или метка времени вне допуска.
	ErrSignatureInvalid = errors.New("invalid signature")
)

// defaultTolerance допуск расхождения метки времени в подписи.
const defaultTolerance = 5 * time.Minute

// IdentityVerifier проверяет подписи webhook identity-провайдера.
//
// Схема: секрет выдаётся в виде "whsec_<base64>"; подписывается строка
// "<id>.<timestamp>.<body>" ключом HMAC-SHA256; заголовок подписи содержит
// разделённый пробелами список записей вида "v1,<base64-подпись>".
type IdentityVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time // Подменяется в тестах
}

// NewIdentityVerifier разбирает секрет и создаёт верификатор.
func NewIdentityVerifier(secret string) (*IdentityVerifier, error) {
	const op = "webhooksig.NewIdentityVerifier"
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &IdentityVerifier{
		secret:    raw,
		tolerance: defaultTolerance,
		now:       time.Now,
	}, nil
}

// Verify проверяет подпись события по трём заголовкам и сырому телу.
// Отсутствие любого заголовка — ErrMissingHeaders, всё остальное,
// что не сходится, — ErrSignatureInvalid.
func (v *IdentityVerifier) Verify(body []byte, id, timestamp, signature string) error {
	if id == "" || timestamp == "" || signature == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > v.tolerance || skew < -v.tolerance {
		return ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// Заголовок может нести несколько подписей разных версий ключа.
	for _, entry := range strings.Fields(signature) {
		version, sig, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrSignatureInvalid
}
