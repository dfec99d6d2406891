// Package payments реализует клиента платёжного шлюза Zarinpal.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	requestPath = "/pg/v4/payment/request.json"
	verifyPath  = "/pg/v4/payment/verify.json"

	// Код 100 — успешный запрос, 101 — платёж уже был проведён ранее.
	codeOK              = 100
	codeAlreadyVerified = 101
)

type Config struct {
	MerchantID  string
	BaseURL     string
	GatewayURL  string
	CallbackURL string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type requestPayload struct {
	MerchantID  string `json:"merchant_id"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Description string `json:"description"`
}

type verifyPayload struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

type gatewayResponse struct {
	Data struct {
		Code      int    `json:"code"`
		Authority string `json:"authority"`
		RefID     int64  `json:"ref_id"`
		Message   string `json:"message"`
	} `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*gatewayResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return &decoded, nil
}

// ChargeRequest регистрирует платёж и возвращает authority вместе с адресом
// страницы оплаты, куда перенаправляется пользователь.
func (c *Client) ChargeRequest(ctx context.Context, amount int64, description string) (string, string, error) {
	resp, err := c.post(ctx, requestPath, requestPayload{
		MerchantID:  c.cfg.MerchantID,
		Amount:      amount,
		CallbackURL: c.cfg.CallbackURL,
		Description: description,
	})
	if err != nil {
		return "", "", err
	}
	if resp.Data.Code != codeOK {
		return "", "", fmt.Errorf("gateway rejected charge request: code %d (%s)", resp.Data.Code, resp.Data.Message)
	}
	redirectURL := fmt.Sprintf("%s/%s", c.cfg.GatewayURL, resp.Data.Authority)
	return resp.Data.Authority, redirectURL, nil
}

// VerifyCharge подтверждает платёж по authority. Код 101 (уже проверен)
// считается успехом: колбэки шлюза могут дублироваться.
func (c *Client) VerifyCharge(ctx context.Context, authority string, amount int64) (string, error) {
	resp, err := c.post(ctx, verifyPath, verifyPayload{
		MerchantID: c.cfg.MerchantID,
		Amount:     amount,
		Authority:  authority,
	})
	if err != nil {
		return "", err
	}
	if resp.Data.Code != codeOK && resp.Data.Code != codeAlreadyVerified {
		return "", fmt.Errorf("gateway rejected verification: code %d (%s)", resp.Data.Code, resp.Data.Message)
	}
	return fmt.Sprintf("%d", resp.Data.RefID), nil
}
