package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/user/linkalert/internal/model"
)

// TelegramChannel ships alerts to Telegram chats through the bot API.
// Recipients are chat IDs.
type TelegramChannel struct {
	token  string
	client *http.Client
}

// NewTelegramChannel creates the telegram channel for the given bot token.
func NewTelegramChannel(token string) *TelegramChannel {
	return &TelegramChannel{
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements Channel.
func (c *TelegramChannel) Name() string { return "telegram" }

// Send posts the alert to every chat ID in recipients.
func (c *TelegramChannel) Send(ctx context.Context, recipients []string, subject, body string, priority model.Priority) error {
	if len(recipients) == 0 {
		return errors.New("no telegram chat IDs configured")
	}

	text := subject + "\n\n" + body

	var errs []error
	for _, chatID := range recipients {
		if err := c.sendOne(ctx, chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %s: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (c *TelegramChannel) sendOne(ctx context.Context, chatID, text string) error {
	payload := map[string]string{
		"chat_id": chatID,
		"text":    text,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("telegram returned %s", resp.Status)
	}
	return nil
}

func (c *TelegramChannel) endpoint() string {
	return fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", c.token)
}
