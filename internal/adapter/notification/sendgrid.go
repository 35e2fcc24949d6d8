package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
)

// Config holds SendGrid connection settings plus the public base URL the
// verification links point back to.
type Config struct {
	APIKey        string
	BaseURL       string
	FromEmail     string
	FromName      string
	VerifyBaseURL string
	Timeout       time.Duration
}

// SendGridNotifier sends confirmation links through the SendGrid v3 mail API.
// It implements domain.Notifier.
type SendGridNotifier struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// NewSendGrid creates a new SendGrid-backed notifier
func NewSendGrid(log *logger.Logger, cfg Config) (*SendGridNotifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing SendGrid API key")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("missing confirmation sender address")
	}
	if strings.TrimSpace(cfg.VerifyBaseURL) == "" {
		return nil, fmt.Errorf("missing verification base URL")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.VerifyBaseURL = strings.TrimRight(strings.TrimSpace(cfg.VerifyBaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SendGridNotifier{
		log:        log.With("client", "SendGridNotifier"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailPayload struct {
	Personalizations []struct {
		To []mailAddress `json:"to"`
	} `json:"personalizations"`
	From    mailAddress `json:"from"`
	Subject string      `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

// SendConfirmationLink delivers the tokenized verification link for one party
func (n *SendGridNotifier) SendConfirmationLink(ctx context.Context, email string, role domain.PartyRole, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", n.cfg.VerifyBaseURL, url.QueryEscape(token))

	payload := mailPayload{
		From:    mailAddress{Email: n.cfg.FromEmail, Name: n.cfg.FromName},
		Subject: "Confirm your negotiation agreement",
	}
	payload.Personalizations = append(payload.Personalizations, struct {
		To []mailAddress `json:"to"`
	}{To: []mailAddress{{Email: email}}})
	payload.Content = append(payload.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{
		Type: "text/plain",
		Value: fmt.Sprintf(
			"You are confirming the agreement as %s.\n\nOpen the link below to confirm. It expires in 24 hours.\n\n%s\n",
			strings.ToLower(string(role)), link),
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	n.log.Info("confirmation link dispatched", "role", role)
	return nil
}
