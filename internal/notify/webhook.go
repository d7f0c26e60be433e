package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookNotifier posts a plain-text summary line to a chat webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier posting to the given webhook URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

var _ Notifier = (*WebhookNotifier)(nil)

type webhookPayload struct {
	Content string `json:"content"`
}

// Notify posts the summary. Any non-2xx response is an error; callers treat
// delivery as best-effort.
func (n *WebhookNotifier) Notify(ctx context.Context, s *Summary) error {
	body, err := json.Marshal(webhookPayload{Content: formatSummary(s)})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// formatSummary renders a single summary line. Rich embeds are rendered by
// the downstream channel, not here.
func formatSummary(s *Summary) string {
	var b strings.Builder

	name := s.Name
	if name == "" {
		name = s.Mint
	}
	fmt.Fprintf(&b, "[%s] %s", s.Kind, name)

	switch {
	case s.PriceSol != nil:
		fmt.Fprintf(&b, " for %s SOL", s.PriceSol.String())
	case s.PriceUsdc != nil:
		fmt.Fprintf(&b, " for %s USDC", s.PriceUsdc.String())
	}

	if s.Buyer != nil {
		fmt.Fprintf(&b, " to %s", shortAddr(*s.Buyer))
	} else if s.Seller != nil {
		fmt.Fprintf(&b, " by %s", shortAddr(*s.Seller))
	}

	fmt.Fprintf(&b, " (%s)", s.Mint)
	return b.String()
}

// shortAddr abbreviates a wallet address for display.
func shortAddr(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + ".." + addr[len(addr)-4:]
}
