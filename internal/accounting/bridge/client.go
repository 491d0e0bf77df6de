package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the connection settings for the external accounting API.
type Config struct {
	BaseURL   string
	Username  string
	AccessKey string
	PartnerID string
	Timeout   time.Duration
}

// Client talks to the Siigo-compatible journal API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// APIError is a non-2xx reply from the external system. Status is kept
// so callers can tell client faults (no retry) from server faults.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge: siigo respondió %d: %s", e.Status, e.Body)
}

// Retryable reports whether the call may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

type journalDocument struct {
	ID int `json:"id"`
}

type journalAccount struct {
	Code string `json:"code"`
}

type journalCostCenter struct {
	Code string `json:"code"`
}

type journalItem struct {
	Account     journalAccount `json:"account"`
	Description string         `json:"description"`
	Debit       float64        `json:"debit,omitempty"`
	Credit      float64        `json:"credit,omitempty"`
}

type journalRequest struct {
	Document   journalDocument    `json:"document"`
	Date       string             `json:"date"`
	CostCenter *journalCostCenter `json:"costCenter,omitempty"`
	Items      []journalItem      `json:"items"`
}

type journalResponse struct {
	ID string `json:"id"`
}

// PostJournal pushes one journal entry and returns the remote identifier.
func (c *Client) PostJournal(ctx context.Context, req journalRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/journals", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.cfg.AccessKey)
	httpReq.Header.Set("Partner-Id", c.cfg.PartnerID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("bridge: llamada a siigo falló: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	var out journalResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("bridge: respuesta de siigo inválida: %w", err)
	}
	return out.ID, nil
}
