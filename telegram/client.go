// Package telegram is the chat transport boundary: it decodes Bot API
// webhook updates into conversation events and sends replies back through
// the Bot API. Delivery retries are Telegram's concern, not this package's.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/A-calculus/personalisedU/logging"
)

// defaultAPIBase is the Bot API endpoint prefix; the bot token is appended.
const defaultAPIBase = "https://api.telegram.org/bot"

// InlineButton is one button of an inline keyboard.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// BaseURL overrides the Bot API endpoint prefix, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client sends outbound messages through the Telegram Bot API.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a Bot API client for the given bot token.
func NewClient(token string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		BaseURL:    defaultAPIBase,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		apiURL:     opts.BaseURL + token,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
}

// SendMessage sends a plain text message to the chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.post(ctx, map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
}

// SendMenu sends a text message with an inline keyboard attached.
func (c *Client) SendMenu(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error {
	return c.post(ctx, map[string]any{
		"chat_id": chatID,
		"text":    text,
		"reply_markup": map[string]any{
			"inline_keyboard": rows,
		},
	})
}

func (c *Client) post(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram api status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
