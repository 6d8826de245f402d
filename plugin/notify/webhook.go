package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookConfig holds webhook configuration.
type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Headers map[string]string
}

// WebhookSender posts reminders as JSON.
type WebhookSender struct {
	config     WebhookConfig
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// WebhookPayload represents the webhook request body.
type WebhookPayload struct {
	Event     string         `json:"event"`
	UserID    int32          `json:"userId"`
	Subject   string         `json:"subject"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewWebhookSender creates a new webhook sender.
func NewWebhookSender(config WebhookConfig) *WebhookSender {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &WebhookSender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     slog.Default(),
		now:        time.Now,
	}
}

func (s *WebhookSender) Send(ctx context.Context, userID int32, msg Message) error {
	payload := WebhookPayload{
		Event:     "review.due",
		UserID:    userID,
		Subject:   msg.Subject,
		Message:   msg.Body,
		Timestamp: s.now().UTC(),
		Metadata:  msg.Metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.Secret != "" {
		req.Header.Set("X-Webhook-Secret", s.config.Secret)
	}
	for k, v := range s.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("webhook request failed", "url", s.config.URL, "error", err)
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		s.logger.Error("webhook returned error",
			"url", s.config.URL,
			"status", resp.StatusCode,
			"response", string(respBody),
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	s.logger.Debug("webhook notification sent", "user_id", userID, "status", resp.StatusCode)
	return nil
}

func (s *WebhookSender) Name() string {
	return string(ChannelWebhook)
}
