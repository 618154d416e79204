package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dfgiraldo/movalert/internal/config"
	"github.com/dfgiraldo/movalert/internal/news"
)

const telegramMaxRetries = 3

// TelegramChannel sends alerts through the Telegram Bot API with retry
// and exponential backoff.
type TelegramChannel struct {
	token   string
	chatID  string
	client  *http.Client
	baseURL string
	backoff time.Duration
}

// NewTelegramChannel creates a Telegram channel from config, reading the
// bot token from the configured environment variable.
func NewTelegramChannel(cfg config.TelegramAlerts) *TelegramChannel {
	return &TelegramChannel{
		token:   os.Getenv(cfg.TokenEnv),
		chatID:  cfg.ChatID,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.telegram.org",
		backoff: time.Second,
	}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Send(item news.Item) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram channel not configured")
	}

	text := FormatMessage(item)
	for attempt := 1; attempt <= telegramMaxRetries; attempt++ {
		err := t.sendOnce(text)
		if err == nil {
			return nil
		}

		log.Printf("Telegram send failed (try %d/%d): %v", attempt, telegramMaxRetries, err)
		if attempt < telegramMaxRetries {
			// Exponential backoff: 2^attempt units.
			time.Sleep(time.Duration(1<<attempt) * t.backoff)
		}
	}
	return fmt.Errorf("telegram send failed after %d tries", telegramMaxRetries)
}

func (t *TelegramChannel) sendOnce(text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API status %d", resp.StatusCode)
	}
	return nil
}
