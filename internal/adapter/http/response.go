package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/byuri-coder/pecu-backend/internal/domain"
)

// APIError is the error body returned to clients
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps an APIError in the response body
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondDomainError maps the domain error taxonomy to HTTP statuses.
// Every rejected transition gets a distinguishable code so clients can
// explain "previous steps incomplete" versus plain bad input.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondError(c, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrStepNotReached):
		respondError(c, http.StatusConflict, "step_not_reached", err)
	case errors.Is(err, domain.ErrContractCancelled):
		respondError(c, http.StatusConflict, "contract_cancelled", err)
	case errors.Is(err, domain.ErrPreconditionFailed):
		respondError(c, http.StatusConflict, "previous_steps_incomplete", err)
	case errors.Is(err, domain.ErrDuplicateKey):
		respondError(c, http.StatusConflict, "duplicate_negotiation", err)
	case errors.Is(err, domain.ErrTransientConflict):
		respondError(c, http.StatusServiceUnavailable, "transient_conflict", err)
	case errors.Is(err, domain.ErrDependencyFailure):
		respondError(c, http.StatusBadGateway, "dependency_failure", err)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
