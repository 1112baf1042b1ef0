// Package legacy is a thin client for the legacy back-office REST API that still owns
// cashtag activity history and the intake side of redeem requests.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no base URL was supplied.
var ErrNotConfigured = errors.New("legacy api is not configured")

const maxResponseBytes = 4 << 20

// APIError is a failure reported by the legacy API, either as {success:false, error} or as a
// non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("legacy api: %s (status %d)", e.Message, e.StatusCode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// CashtagActivity is one entry of a cashtag's legacy transaction history.
type CashtagActivity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RedeemRequest is the legacy projection of a redeem request.
type RedeemRequest struct {
	ID          string `json:"id"`
	PlayerID    string `json:"player_id"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns nil when baseURL is empty; a nil *Client answers every call with
// ErrNotConfigured.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil
}

func (c *Client) CashtagActivity(ctx context.Context, tagID string) ([]CashtagActivity, error) {
	var out []CashtagActivity
	err := c.get(ctx, "/cashtags/"+url.PathEscape(tagID)+"/activity", nil, &out)
	return out, err
}

func (c *Client) RedeemRequests(ctx context.Context, status string) ([]RedeemRequest, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var out []RedeemRequest
	err := c.get(ctx, "/redeem-requests", query, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c == nil {
		return ErrNotConfigured
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build legacy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("legacy request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read legacy response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode legacy response: %w", err)
	}
	if !env.Success || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(env.Error)}
		zap.L().Warn("legacy api call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode legacy data: %w", err)
	}
	return nil
}

// errorMessage accepts either a plain string or an object with a message field.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "request failed"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
