// Package paymentprovider реализует REST-клиент платёжного провайдера:
// получение подписки и создание checkout-сессий. Клиент создаётся один
// раз при старте приложения и передаётся сервисам по ссылке.
package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client клиент API платёжного провайдера.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент с секретным ключом аккаунта.
func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     "https://api.payment.example.com/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// newRequest собирает запрос с авторизацией. Тело, если есть,
// кодируется как форма — так принимает API провайдера.
func (c *Client) newRequest(ctx context.Context, method, path string, form url.Values) (*http.Request, error) {
	endpoint := c.apiURL + path
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

// GetSubscription запрашивает у провайдера полные данные подписки.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	const op = "paymentprovider.GetSubscription"
	req, err := c.newRequest(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(subscriptionID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, errors.New("unexpected status: "+resp.Status))
	}

	var sub Subscription
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// CreateCheckoutSession создаёт checkout-сессию в режиме подписки.
func (c *Client) CreateCheckoutSession(ctx context.Context, reqParams CreateCheckoutSessionRequest) (*CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	form := url.Values{}
	form.Set("mode", ModeSubscription)
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", reqParams.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", reqParams.SuccessURL)
	form.Set("cancel_url", reqParams.CancelURL)
	if reqParams.CustomerEmail != "" {
		form.Set("customer_email", reqParams.CustomerEmail)
	}
	for key, value := range reqParams.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/checkout/sessions", form)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: %w", op, errors.New("unexpected status: "+resp.Status))
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &session, nil
}
