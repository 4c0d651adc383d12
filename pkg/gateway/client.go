package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/internal/domain"
	"github.com/lightsms/lightsms/pkg/logger"
)

// Client talks to the TextBelt SMS gateway: form-POST sends and GET
// status lookups.
type Client struct {
	httpClient *resty.Client
	sendURL    string
	statusURL  string
	apiKey     string
}

func NewClient(cfg environments.GatewayConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		sendURL:    cfg.URL,
		statusURL:  cfg.StatusURL,
		apiKey:     cfg.APIKey,
	}
}

// textID is a json.Number so both numeric and string ids from the
// provider decode cleanly.
type sendResponse struct {
	Success bool        `json:"success"`
	TextID  json.Number `json:"textId"`
	Error   string      `json:"error"`
}

// Send submits one message. A non-success provider verdict is returned
// in the result, not as an error; only transport problems error out.
func (c *Client) Send(ctx context.Context, phone, message string) (*domain.GatewaySendResult, error) {
	var sendResp sendResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"phone":   phone,
			"message": message,
			"key":     c.apiKey,
		}).
		SetResult(&sendResp).
		Post(c.sendURL)

	duration := time.Since(startTime)

	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	logger.Debugf("Gateway send completed in %v (status: %d)", duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	return &domain.GatewaySendResult{
		Success: sendResp.Success,
		TextID:  sendResp.TextID.String(),
		Error:   sendResp.Error,
	}, nil
}

// Status looks up the delivery status of a previously sent message by
// its gateway id.
func (c *Client) Status(ctx context.Context, textID string) (*domain.GatewayStatusResult, error) {
	var statusResp domain.GatewayStatusResult

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetResult(&statusResp).
		Get(c.statusURL + "/" + textID)
	if err != nil {
		return nil, fmt.Errorf("failed to send status request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode(), resp.String())
	}

	return &statusResp, nil
}

func (c *Client) SendURL() string {
	return c.sendURL
}
