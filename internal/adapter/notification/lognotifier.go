package notification

import (
	"context"

	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
)

// LogNotifier writes confirmation requests to the log instead of sending
// mail. Used for local development when no SendGrid key is configured; the
// operator copies the verification link out of the log.
type LogNotifier struct {
	log           *logger.Logger
	verifyBaseURL string
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(log *logger.Logger, verifyBaseURL string) *LogNotifier {
	return &LogNotifier{
		log:           log.With("client", "LogNotifier"),
		verifyBaseURL: verifyBaseURL,
	}
}

// SendConfirmationLink logs the link it would have mailed
func (n *LogNotifier) SendConfirmationLink(ctx context.Context, email string, role domain.PartyRole, token string) error {
	n.log.Info("confirmation link (mail disabled)",
		"to", email,
		"role", role,
		"link", n.verifyBaseURL+"/verify?token="+token)
	return nil
}
