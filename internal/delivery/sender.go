// Package delivery abstracts the transactional mail transport. Two variants
// exist: direct SMTP and the MailerSend HTTP API. The variant is picked once
// at startup and injected; callers treat any returned error as a failed send,
// log it, and continue.
package delivery

import (
	"context"
	"fmt"
	"net/mail"
)

type Sender interface {
	SendHTML(ctx context.Context, to, subject, html string) error
}

// validateRecipient rejects malformed addresses before any network call.
func validateRecipient(to string) error {
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	return nil
}
