// HTTP client for the outbound mail relay.
//
// Environment:
//   - MAIL_API_URL: base URL of the relay (POST {url}/messages)
//   - MAIL_API_KEY: bearer token for the relay
//   - MAIL_FROM: sender address
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/authkit/backend/internal/config"
)

type MailClient struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
}

type mailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type mailResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	ID    string `json:"id,omitempty"`
}

func NewMailClient(cfg config.MailConfig) *MailClient {
	return &MailClient{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey: cfg.APIKey,
		from:   cfg.From,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *MailClient) IsConfigured() bool {
	return c.apiURL != "" && c.apiKey != ""
}

// Send posts one message to the relay. The 10s client timeout bounds
// how long a request handler can be held up by mail delivery.
func (c *MailClient) Send(ctx context.Context, to, subject, html string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("mail relay URL or API key not configured")
	}

	payload, err := json.Marshal(mailMessage{
		From:    c.from,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/messages", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode)
	}

	var mailResp mailResponse
	if err := json.Unmarshal(body, &mailResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !mailResp.OK {
		return fmt.Errorf("mail relay error: %s", mailResp.Error)
	}

	return nil
}
