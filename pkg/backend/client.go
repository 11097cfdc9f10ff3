// Package backend talks to the trading agent HTTP API.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agentterm/pkg/models"

	"github.com/go-resty/resty/v2"
)

// ErrUnexpectedStatus is returned for any non-2xx reply.
var ErrUnexpectedStatus = errors.New("unexpected status")

// DefaultTimeout bounds a single request.
const DefaultTimeout = 60 * time.Second

// Client is a backend API client.
type Client struct {
	client *resty.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	c.SetTimeout(timeout)
	c.SetHeader("Content-Type", "application/json")
	c.SetHeader("Accept", "application/json")
	return &Client{client: c}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.client.BaseURL
}

// InitUser binds userAddress to its agent and returns the current
// portfolio, prices and trade history.
func (c *Client) InitUser(ctx context.Context, userAddress string) (models.InitResponse, error) {
	var out models.InitResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(models.InitRequest{UserAddress: userAddress}).
		SetResult(&out).
		Post("/api/init-user")
	if err != nil {
		return models.InitResponse{}, fmt.Errorf("init user: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return models.InitResponse{}, fmt.Errorf("init user: %w", err)
	}
	return out, nil
}

// RunStrategy sends one natural-language command to the agent and returns
// its reply text.
func (c *Client) RunStrategy(ctx context.Context, req models.StrategyRequest) (string, error) {
	var out models.StrategyResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/run-strategy")
	if err != nil {
		return "", fmt.Errorf("run strategy: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("run strategy: %w", err)
	}
	return out.Result, nil
}

func checkStatus(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode(), body)
}
