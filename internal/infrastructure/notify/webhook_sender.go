// Package notify provides delivery adapters for automation rule actions.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/propman/backend/internal/domain/automation"
)

const defaultWebhookTimeout = 10 * time.Second

// HTTPWebhookSender implements the automation.WebhookSender interface with a
// JSON POST. When the action carries a secret, the body is signed with
// HMAC-SHA256 so the receiver can verify origin.
type HTTPWebhookSender struct {
	httpClient *http.Client
}

// NewHTTPWebhookSender creates a webhook sender with a bounded timeout
func NewHTTPWebhookSender() *HTTPWebhookSender {
	return &HTTPWebhookSender{
		httpClient: &http.Client{Timeout: defaultWebhookTimeout},
	}
}

// SendWebhook posts the firing payload to the configured endpoint
func (s *HTTPWebhookSender) SendWebhook(ctx context.Context, action automation.WebhookAction, payload automation.FiringPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if action.Secret != "" {
		req.Header.Set("X-Webhook-Signature", signPayload(action.Secret, body))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// signPayload computes the hex HMAC-SHA256 of the body
func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Ensure HTTPWebhookSender implements the interface
var _ automation.WebhookSender = (*HTTPWebhookSender)(nil)
