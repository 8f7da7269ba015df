package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const mailerSendAPIURL = "https://api.mailersend.com/v1/email"

type MailerSendConfig struct {
	Token     string
	FromEmail string
	FromName  string
	// Enabled false logs the send and reports success, so the pipeline can
	// be exercised without an API token.
	Enabled bool
	// APIURL overrides the MailerSend endpoint; empty means production.
	APIURL string
}

type MailerSendSender struct {
	client *http.Client
	cfg    MailerSendConfig
}

func NewMailerSendSender(cfg MailerSendConfig) *MailerSendSender {
	if cfg.APIURL == "" {
		cfg.APIURL = mailerSendAPIURL
	}
	return &MailerSendSender{
		client: &http.Client{Timeout: 30 * time.Second},
		cfg:    cfg,
	}
}

type mailerSendAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailerSendPayload struct {
	From    mailerSendAddress   `json:"from"`
	To      []mailerSendAddress `json:"to"`
	Subject string              `json:"subject"`
	HTML    string              `json:"html"`
}

func (s *MailerSendSender) SendHTML(ctx context.Context, to, subject, html string) error {
	if err := validateRecipient(to); err != nil {
		return err
	}

	if !s.cfg.Enabled {
		log.Printf("[INFO] mailersend disabled, would send %q to %s", subject, to)
		return nil
	}

	body, err := json.Marshal(mailerSendPayload{
		From:    mailerSendAddress{Email: s.cfg.FromEmail, Name: s.cfg.FromName},
		To:      []mailerSendAddress{{Email: to}},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("mailersend returned %s for %s", resp.Status, to)
	}
	return nil
}
