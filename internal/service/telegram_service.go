package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier tells operators about failures that need a human.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string) error { return nil }

// TelegramService sends notifications through the Telegram Bot API
type TelegramService struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramService returns nil when the bot is not configured.
func NewTelegramService(botToken, chatID string) *TelegramService {
	if botToken == "" || chatID == "" {
		return nil
	}
	return &TelegramService{
		apiURL:   "https://api.telegram.org",
		botToken: botToken,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (s *TelegramService) Notify(ctx context.Context, subject, message string) error {
	text := fmt.Sprintf("⚠️ <b>%s</b>\n\n%s", escapeHTML(subject), escapeHTML(message))

	payload, err := json.Marshal(telegramMessage{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// escapeHTML escapes HTML special characters for Telegram
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
