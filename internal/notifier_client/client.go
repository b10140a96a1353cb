package notifier_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Dashboard virtual pins.
const (
	pinStatus = "v0"
	pinCount  = "v1"
	pinAlarm  = "v2"
)

// Client pushes verdicts to the monitoring dashboard. All calls are
// best-effort; callers log errors and never propagate them into the
// classification pipeline.
type Client struct {
	baseURL    string
	token      string
	enabled    bool
	httpClient *http.Client
}

// NewClient creates a new dashboard notifier client.
func NewClient(baseURL, token string, enabled bool) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		enabled: enabled,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// UpdateStatus pushes a status text for the device.
func (c *Client) UpdateStatus(ctx context.Context, status string) error {
	return c.update(ctx, map[string]string{pinStatus: status})
}

// UpdateAll pushes the verdict, the larvae count, and the alarm pin in one
// call.
func (c *Client) UpdateAll(ctx context.Context, verdict string, larvaeCount int) error {
	alarm := "0"
	if larvaeCount > 0 {
		alarm = "1"
	}
	return c.update(ctx, map[string]string{
		pinStatus: verdict,
		pinCount:  strconv.Itoa(larvaeCount),
		pinAlarm:  alarm,
	})
}

func (c *Client) update(ctx context.Context, pins map[string]string) error {
	if !c.enabled {
		return nil
	}

	params := url.Values{}
	params.Set("token", c.token)
	for pin, value := range pins {
		params.Set(pin, value)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/external/api/update?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("dashboard returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
