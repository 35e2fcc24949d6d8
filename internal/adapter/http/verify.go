package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
	"github.com/byuri-coder/pecu-backend/internal/usecase/negotiation"
	"github.com/byuri-coder/pecu-backend/internal/usecase/token"
)

// VerifyHandler serves the public tokenized confirmation link.
// It never exposes error detail to the end user: every failure — missing,
// invalid or expired token, unknown contract, gated step — collapses into a
// redirect to the generic failure view. The distinct causes stay visible in
// the logs.
type VerifyHandler struct {
	log        *logger.Logger
	service    *negotiation.Service
	tokens     *token.Codec
	successURL string
	failureURL string
}

// NewVerifyHandler creates a new VerifyHandler instance
func NewVerifyHandler(log *logger.Logger, s *negotiation.Service, codec *token.Codec, successURL, failureURL string) *VerifyHandler {
	return &VerifyHandler{
		log:        log.With("handler", "VerifyHandler"),
		service:    s,
		tokens:     codec,
		successURL: successURL,
		failureURL: failureURL,
	}
}

// GET /verify?token=...
func (h *VerifyHandler) Verify(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		h.log.Warn("verification link without token")
		c.Redirect(http.StatusFound, h.failureURL)
		return
	}

	contractID, role, err := h.tokens.Verify(raw)
	if err != nil {
		// Expired and invalid land on the same failure view but are logged apart
		if errors.Is(err, token.ErrTokenExpired) {
			h.log.Warn("verification token expired")
		} else {
			h.log.Warn("verification token invalid")
		}
		c.Redirect(http.StatusFound, h.failureURL)
		return
	}

	if _, err := h.service.ConfirmEmail(c.Request.Context(), contractID, role); err != nil {
		h.log.Warn("email confirmation rejected",
			"contract_id", contractID, "role", role, "error", err)
		c.Redirect(http.StatusFound, h.failureURL)
		return
	}

	c.Redirect(http.StatusFound, h.successURL)
}
