package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/bakehouse/internal/config"
)

// ErrSMSNotConfigured is returned when SMS credentials are missing.
var ErrSMSNotConfigured = errors.New("sms provider is not configured")

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, body string) error
}

// SMSService talks to a Twilio-compatible messages API.
type SMSService struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
}

// NewSMSService builds an SMS client from configuration.
func NewSMSService(cfg config.SMSConfig) *SMSService {
	return &SMSService{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether credentials are present.
func (s *SMSService) Enabled() bool {
	return s.accountSID != "" && s.authToken != "" && s.from != ""
}

// SendSMS posts one message. The body is never included in returned errors.
func (s *SMSService) SendSMS(ctx context.Context, phone, body string) error {
	if !s.Enabled() {
		return ErrSMSNotConfigured
	}

	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, url.PathEscape(s.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms send: status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
