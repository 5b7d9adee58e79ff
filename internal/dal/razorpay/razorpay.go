// Package razorpay is a thin client for the gateway's create-order
// contract. The payment UI itself runs in the customer's browser; this
// side only reserves intents.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/nellaishop/order/internal/payments"
	"github.com/nellaishop/order/internal/service/models/currency"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Client implements payments.Gateway against the provider's REST API.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewClient reads credentials from the environment and the base URL
// from config.
func NewClient() *Client {
	baseURL := viper.GetString("razorpay.base_url")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:   baseURL,
		keyID:     os.Getenv("RAZORPAY_KEY_ID"),
		keySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent reserves a payment for the given amount. Provider
// amounts are in the currency's minor unit, so whole rupees scale by
// a hundred on the wire and back.
func (c *Client) CreateIntent(ctx context.Context, amount int64, cur currency.Currency) (payments.Intent, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount * 100,
		Currency: cur.String(),
	})
	if err != nil {
		return payments.Intent{}, fmt.Errorf("failed to encode create order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return payments.Intent{}, fmt.Errorf("failed to build create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return payments.Intent{}, fmt.Errorf("create order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return payments.Intent{}, fmt.Errorf("gateway rejected create order: status %d", resp.StatusCode)
	}

	var decoded createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return payments.Intent{}, fmt.Errorf("failed to decode create order response: %w", err)
	}

	parsedCur, err := currency.ParseCurrency(decoded.Currency)
	if err != nil {
		return payments.Intent{}, fmt.Errorf("gateway returned unexpected currency %q: %w", decoded.Currency, err)
	}

	return payments.Intent{
		GatewayOrderRef: decoded.ID,
		Amount:          decoded.Amount / 100,
		Currency:        parsedCur,
	}, nil
}
