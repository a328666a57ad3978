package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const resendDefaultBaseURL = "https://api.resend.com"

// ResendConfig holds Resend transport configuration
type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	BaseURL   string
	Timeout   time.Duration
}

// Resend sends email through the Resend emails API
type Resend struct {
	config ResendConfig
	client *http.Client
	logger *slog.Logger
}

// NewResend creates a Resend transport
func NewResend(config ResendConfig, logger *slog.Logger) *Resend {
	if config.BaseURL == "" {
		config.BaseURL = resendDefaultBaseURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Resend{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// Send sends a single message via Resend
func (r *Resend) Send(ctx context.Context, msg *Message) error {
	from := r.config.FromEmail
	if r.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", r.config.FromName, r.config.FromEmail)
	}

	payload := resendPayload{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
	}

	if msg.ContentType == ContentTypeHTML {
		payload.HTML = msg.Body
	} else {
		payload.Text = msg.Body
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal resend payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build resend request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		r.logger.Debug("Email sent via Resend",
			slog.String("to", msg.To),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	}

	detail := readErrorDetail(resp.Body)

	return &SendError{
		Provider:   "resend",
		StatusCode: resp.StatusCode,
		Detail:     detail,
	}
}
