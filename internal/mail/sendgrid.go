package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const sendGridDefaultBaseURL = "https://api.sendgrid.com"

// SendGridConfig holds SendGrid transport configuration
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	BaseURL   string
	Timeout   time.Duration
}

// SendGrid sends email through the SendGrid v3 mail send API
type SendGrid struct {
	config SendGridConfig
	client *http.Client
	logger *slog.Logger
}

// NewSendGrid creates a SendGrid transport
func NewSendGrid(config SendGridConfig, logger *slog.Logger) *SendGrid {
	if config.BaseURL == "" {
		config.BaseURL = sendGridDefaultBaseURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SendGrid{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPayload struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendGridAddress   `json:"from"`
	Subject string            `json:"subject"`
	Content []sendGridContent `json:"content"`
}

// Send sends a single message via SendGrid
func (s *SendGrid) Send(ctx context.Context, msg *Message) error {
	contentType := msg.ContentType
	if contentType == "" {
		contentType = ContentTypePlain
	}

	payload := sendGridPayload{
		Personalizations: []struct {
			To []sendGridAddress `json:"to"`
		}{
			{To: []sendGridAddress{{Email: msg.To}}},
		},
		From: sendGridAddress{
			Email: s.config.FromEmail,
			Name:  s.config.FromName,
		},
		Subject: msg.Subject,
		Content: []sendGridContent{
			{Type: contentType, Value: msg.Body},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sendgrid request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Debug("Email sent via SendGrid",
			slog.String("to", msg.To),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	}

	detail := readErrorDetail(resp.Body)

	return &SendError{
		Provider:   "sendgrid",
		StatusCode: resp.StatusCode,
		Detail:     detail,
	}
}

// readErrorDetail extracts a bounded, single-line error body
func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(string(data), "\n", " "))
}
