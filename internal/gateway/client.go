package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paydesk_backend/internal/logger"
)

// maxBodySize caps how much of a gateway answer is read.
const maxBodySize = 1 << 20

// Error is returned for transport failures (StatusCode 0) and non-2xx answers.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("gateway %s: http %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("gateway %s: http %d", e.Op, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Config struct {
	BaseURL      string
	APIKey       string
	CreatePath   string
	StatusPath   string // fmt pattern with one %s for the uuid
	SendCashPath string
	SMSBaseURL   string
	SMSPath      string
	Timeout      time.Duration
}

// Client is a stateless wrapper over the gateway HTTP API. It never retries
// and never interprets business statuses.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client. A nil httpClient gets one bounded by cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.SMSBaseURL == "" {
		cfg.SMSBaseURL = cfg.BaseURL
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Create registers a new payment with the gateway.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	body, err := c.do(ctx, "create", http.MethodPost, c.cfg.BaseURL+c.cfg.CreatePath, req)
	if err != nil {
		return nil, err
	}

	var resp CreateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Op: "create", StatusCode: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &resp, nil
}

// QueryStatus fetches the current status of a payment.
func (c *Client) QueryStatus(ctx context.Context, uuid string) (*RawStatus, error) {
	target := c.cfg.BaseURL + fmt.Sprintf(c.cfg.StatusPath, url.PathEscape(uuid))
	body, err := c.do(ctx, "status", http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	raw := &RawStatus{UUID: uuid, Body: json.RawMessage(body)}
	if err := json.Unmarshal(body, raw); err != nil {
		return nil, &Error{Op: "status", StatusCode: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}
	return raw, nil
}

// SendCash pushes funds to a mobile-money wallet.
func (c *Client) SendCash(ctx context.Context, req SendCashRequest) (*SendCashResponse, error) {
	body, err := c.do(ctx, "send-cash", http.MethodPost, c.cfg.BaseURL+c.cfg.SendCashPath, req)
	if err != nil {
		return nil, err
	}

	var resp SendCashResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Op: "send-cash", StatusCode: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &resp, nil
}

// SendSMS dispatches a text message through the gateway's SMS endpoint.
func (c *Client) SendSMS(ctx context.Context, req SMSRequest) error {
	_, err := c.do(ctx, "sms", http.MethodPost, c.cfg.SMSBaseURL+c.cfg.SMSPath, req)
	return err
}

func (c *Client) do(ctx context.Context, op, method, target string, payload any) ([]byte, error) {
	start := time.Now()

	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		gwErr := &Error{Op: op, Err: err}
		logger.GatewayLog(op, target, 0, time.Since(start), gwErr)
		return nil, gwErr
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		gwErr := &Error{Op: op, StatusCode: res.StatusCode, Err: fmt.Errorf("read response: %w", err)}
		logger.GatewayLog(op, target, res.StatusCode, time.Since(start), gwErr)
		return nil, gwErr
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		gwErr := &Error{Op: op, StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
		logger.GatewayLog(op, target, res.StatusCode, time.Since(start), gwErr)
		return nil, gwErr
	}

	logger.GatewayLog(op, target, res.StatusCode, time.Since(start), nil)
	return body, nil
}
