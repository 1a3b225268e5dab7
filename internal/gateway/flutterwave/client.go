package flutterwave

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
	// baseURL is the base url of the Flutterwave v3 API.
	baseURL string

	// secretKey authorizes API calls.
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

type paymentForm struct {
	TxRef       string          `json:"tx_ref"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	RedirectURL string          `json:"redirect_url,omitempty"`
	Customer    struct {
		Email string `json:"email"`
		Phone string `json:"phone_number"`
		Name  string `json:"name"`
	} `json:"customer"`
	Customizations struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"customizations"`
}

// createPayment requests a hosted payment page. Amounts stay in major
// units; Flutterwave does its own minor-unit handling.
func (c *Client) createPayment(ctx context.Context, f *paymentForm) (string, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("createPayment: json.Marshal: %w", err)
	}

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, _baseURL.String()+"/payments", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("createPayment: http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("createPayment: http.Do: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return "", fmt.Errorf("createPayment: json.Decode: %w", err)
	}
	if reply.Status != "success" {
		return "", fmt.Errorf("createPayment: reply.Status: %v, reply.Message: %v", reply.Status, reply.Message)
	}

	return reply.Data.Link, nil
}

// verifyTransaction checks a transaction against the Flutterwave API.
// The key may be the numeric transaction id from a webhook or our own
// tx_ref during reconciliation; the endpoint accepts both.
func (c *Client) verifyTransaction(ctx context.Context, key string) (bool, decimal.Decimal, string, string, error) {
	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/transactions/%s/verify", _baseURL.String(), url.PathEscape(key)), nil)
	if err != nil {
		return false, decimal.Zero, "", "", fmt.Errorf("verifyTransaction: http.NewReq: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, decimal.Zero, "", "", fmt.Errorf("verifyTransaction: http.Do: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status   string          `json:"status"`
			TxRef    string          `json:"tx_ref"`
			Amount   decimal.Decimal `json:"amount"`
			Currency string          `json:"currency"`
		} `json:"data"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return false, decimal.Zero, "", "", fmt.Errorf("verifyTransaction: json.Decode: %w", err)
	}

	paid := reply.Status == "success" && reply.Data.Status == "successful"
	return paid, reply.Data.Amount, reply.Data.Currency, reply.Data.TxRef, nil
}

// healthProbe pings the API root with authorization.
func (c *Client) healthProbe(ctx context.Context) error {
	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, _baseURL.String()+"/ping", nil)
	if err != nil {
		return fmt.Errorf("healthProbe: http.NewReq: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("healthProbe: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthProbe: http.StatusCode: %d", resp.StatusCode)
	}
	return nil
}
