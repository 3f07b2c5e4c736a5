// Package notify delivers short text messages to end users through the
// Telegram Bot API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIURL is the Telegram Bot API root.
const DefaultAPIURL = "https://api.telegram.org"

// DefaultTimeout bounds a single sendMessage call.
const DefaultTimeout = 5 * time.Second

// ErrNotConfigured is returned when no bot token is set.
var ErrNotConfigured = errors.New("notify: bot token not configured")

// Notifier sends a text to a chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Telegram implements Notifier with the sendMessage method.
type Telegram struct {
	apiURL string
	token  string
	http   *http.Client
}

// NewTelegram returns a Telegram notifier. An empty apiURL selects
// DefaultAPIURL; a zero timeout selects DefaultTimeout.
func NewTelegram(apiURL, token string, timeout time.Duration) *Telegram {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Telegram{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		http:   &http.Client{Timeout: timeout},
	}
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if t.token == "" {
		return ErrNotConfigured
	}
	data, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		// the url carries the token; keep it out of the error
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil || !out.OK {
		msg := out.Description
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("sendMessage failed (%d): %s", resp.StatusCode, msg)
	}
	return nil
}
