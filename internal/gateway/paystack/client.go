package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL   string        `json:"base_url" mapstructure:"base_url"`
	SecretKey string        `json:"secret_key" mapstructure:"secret_key"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

type Client struct {
	// baseURL is the base url of the Paystack API.
	baseURL string

	// secretKey authorizes API calls and signs webhook payloads.
	secretKey string

	// hc is the http client.
	hc *http.Client
}

func newClient(c *Config) *Client {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   c.BaseURL,
		secretKey: c.SecretKey,

		// set http client with timeout.
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

type initializeForm struct {
	Email       string `json:"email"`
	AmountKobo  int64  `json:"amount"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// initializeTransaction requests a hosted checkout link. Amounts are in
// kobo (minor units).
func (c *Client) initializeTransaction(ctx context.Context, f *initializeForm) (string, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("initializeTransaction: json.Marshal: %w", err)
	}

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, _baseURL.String()+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("initializeTransaction: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("initializeTransaction: http.Do: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("initializeTransaction: json.Decode: %w", err)
	}
	if !reply.Status {
		return "", fmt.Errorf("initializeTransaction: reply.Status: false, reply.Message: %v", reply.Message)
	}

	return reply.Data.AuthorizationURL, nil
}

// verifyTransaction checks a transaction's state against the Paystack API.
func (c *Client) verifyTransaction(ctx context.Context, reference string) (bool, decimal.Decimal, string, error) {
	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/transaction/verify/%s", _baseURL.String(), url.PathEscape(reference)), nil)
	if err != nil {
		return false, decimal.Zero, "", fmt.Errorf("verifyTransaction: http.NewReq: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, decimal.Zero, "", fmt.Errorf("verifyTransaction: http.Do: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status     string `json:"status"`
			AmountKobo int64  `json:"amount"`
			Currency   string `json:"currency"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return false, decimal.Zero, "", fmt.Errorf("verifyTransaction: json.Decode: %w", err)
	}

	paid := reply.Status && reply.Data.Status == "success"
	amount := decimal.NewFromInt(reply.Data.AmountKobo).Div(decimal.NewFromInt(minorUnitFactor))
	return paid, amount, reply.Data.Currency, nil
}

// healthProbe issues a lightweight authorized request. Paystack answers
// 401 on a bad key but anything below 500 means the service is up.
func (c *Client) healthProbe(ctx context.Context) error {
	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, _baseURL.String()+"/dedicated_account", nil)
	if err != nil {
		return fmt.Errorf("healthProbe: http.NewReq: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("healthProbe: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("healthProbe: http.StatusCode: %d", resp.StatusCode)
	}
	return nil
}
