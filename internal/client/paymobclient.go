package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iti-open-source/oceanlibrary-api/internal/config"
)

// PaymentGateway is everything checkout and reconciliation need from the
// payment provider. Both calls hit the network and can be slow or fail.
type PaymentGateway interface {
	RequestPaymentLink(ctx context.Context, amount decimal.Decimal) (*PaymentLink, error)
	IsSettled(ctx context.Context, gatewayOrderID string) (bool, error)
}

type PaymentLink struct {
	GatewayOrderID string
	IframeURL      string
}

type paymobClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	apiKey        string
	integrationID string
	iframeID      string
}

func NewPaymobClient(paymobCfg *config.Paymob) PaymentGateway {
	return &paymobClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    paymobCfg.BaseApiURL,
		apiKey:        paymobCfg.APIKey,
		integrationID: paymobCfg.IntegrationID,
		iframeID:      paymobCfg.IframeID,
	}
}

func (c *paymobClientImpl) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paymob error %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode paymob response: %w", err)
	}

	return nil
}

func (c *paymobClientImpl) getAuthToken(ctx context.Context) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	err := c.postJSON(ctx, "/api/auth/tokens", map[string]string{"api_key": c.apiKey}, &res)
	if err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", fmt.Errorf("paymob auth returned empty token")
	}
	return res.Token, nil
}

func (c *paymobClientImpl) RequestPaymentLink(ctx context.Context, amount decimal.Decimal) (*PaymentLink, error) {
	authToken, err := c.getAuthToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get paymob auth token: %w", err)
	}

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	var orderRes struct {
		ID int64 `json:"id"`
	}
	err = c.postJSON(ctx, "/api/ecommerce/orders", map[string]any{
		"auth_token":      authToken,
		"delivery_needed": "false",
		"amount_cents":    strconv.FormatInt(amountCents, 10),
		"currency":        "EGP",
		"items":           []any{},
	}, &orderRes)
	if err != nil {
		return nil, fmt.Errorf("paymob register order: %w", err)
	}
	if orderRes.ID == 0 {
		return nil, fmt.Errorf("paymob register order returned no id")
	}

	var keyRes struct {
		Token string `json:"token"`
	}
	err = c.postJSON(ctx, "/api/acceptance/payment_keys", map[string]any{
		"auth_token":     authToken,
		"amount_cents":   strconv.FormatInt(amountCents, 10),
		"expiration":     3600,
		"order_id":       orderRes.ID,
		"currency":       "EGP",
		"integration_id": c.integrationID,
		"billing_data":   minimalBillingData(),
	}, &keyRes)
	if err != nil {
		return nil, fmt.Errorf("paymob payment key: %w", err)
	}
	if keyRes.Token == "" {
		return nil, fmt.Errorf("paymob payment key returned empty token")
	}

	return &PaymentLink{
		GatewayOrderID: strconv.FormatInt(orderRes.ID, 10),
		IframeURL: fmt.Sprintf("%s/api/acceptance/iframes/%s?payment_token=%s",
			c.baseApiURL, c.iframeID, keyRes.Token),
	}, nil
}

func (c *paymobClientImpl) IsSettled(ctx context.Context, gatewayOrderID string) (bool, error) {
	authToken, err := c.getAuthToken(ctx)
	if err != nil {
		return false, fmt.Errorf("get paymob auth token: %w", err)
	}

	var res struct {
		Success bool `json:"success"`
		Pending bool `json:"pending"`
	}
	err = c.postJSON(ctx, "/api/ecommerce/orders/transaction_inquiry", map[string]any{
		"auth_token": authToken,
		"order_id":   gatewayOrderID,
	}, &res)
	if err != nil {
		return false, fmt.Errorf("paymob transaction inquiry: %w", err)
	}

	return res.Success && !res.Pending, nil
}

// Paymob rejects payment-key requests with missing billing fields; the hosted
// iframe collects the real data.
func minimalBillingData() map[string]string {
	return map[string]string{
		"first_name":   "NA",
		"last_name":    "NA",
		"email":        "NA",
		"phone_number": "NA",
		"apartment":    "NA",
		"floor":        "NA",
		"street":       "NA",
		"building":     "NA",
		"city":         "NA",
		"country":      "NA",
		"state":        "NA",
	}
}
