package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/user/linkalert/internal/model"
)

// SlackChannel posts alerts to a Slack incoming webhook. Recipients are
// ignored: the webhook URL is bound to a channel on the Slack side.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
}

// NewSlackChannel creates the slack channel for the given webhook URL.
func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements Channel.
func (c *SlackChannel) Name() string { return "slack" }

// Send implements Channel.
func (c *SlackChannel) Send(ctx context.Context, _ []string, subject, body string, priority model.Priority) error {
	payload := map[string]string{
		"text": fmt.Sprintf("%s\n\n%s", subject, body),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}
