package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
	"github.com/byuri-coder/pecu-backend/internal/usecase/factory"
	"github.com/byuri-coder/pecu-backend/internal/usecase/negotiation"
)

// NegotiationHandler serves the in-app negotiation lifecycle endpoints
type NegotiationHandler struct {
	log     *logger.Logger
	factory *factory.Factory
	service *negotiation.Service
}

// NewNegotiationHandler creates a new NegotiationHandler instance
func NewNegotiationHandler(log *logger.Logger, f *factory.Factory, s *negotiation.Service) *NegotiationHandler {
	return &NegotiationHandler{
		log:     log.With("handler", "NegotiationHandler"),
		factory: f,
		service: s,
	}
}

type contractView struct {
	ContractID    string                `json:"contractId"`
	NegotiationID string                `json:"negotiationId"`
	Status        domain.ContractStatus `json:"status"`
	Step          int                   `json:"step"`
	Acceptances   domain.PartyPair      `json:"acceptances"`
	Fields        domain.ContractFields `json:"fields"`
}

func toContractView(c *domain.Contract) contractView {
	return contractView{
		ContractID:    c.ID.String(),
		NegotiationID: c.NegotiationID,
		Status:        c.Status,
		Step:          c.Step,
		Acceptances:   c.Acceptances,
		Fields:        c.Fields,
	}
}

type createContractRequest struct {
	NegotiationID string `json:"negotiationId"`
	BuyerID       string `json:"buyerId"`
	SellerID      string `json:"sellerId"`
	AssetID       string `json:"assetId"`
}

// POST /api/negotiations
// Get-or-create: the first caller for a negotiation creates the contract,
// everyone after (or racing) gets the same one back.
func (h *NegotiationHandler) CreateOrGet(c *gin.Context) {
	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	contract, err := h.factory.GetOrCreate(c.Request.Context(), req.NegotiationID, req.BuyerID, req.SellerID, req.AssetID)
	if err != nil {
		h.log.Error("get-or-create failed", "negotiation_id", req.NegotiationID, "error", err)
		respondDomainError(c, err)
		return
	}
	respondOK(c, toContractView(contract))
}

// GET /api/negotiations/:negotiationId/status
func (h *NegotiationHandler) GetStatus(c *gin.Context) {
	view, err := h.service.Status(c.Request.Context(), c.Param("negotiationId"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, view)
}

type roleRequest struct {
	Role string `json:"role"`
}

// POST /api/negotiations/:negotiationId/accept
func (h *NegotiationHandler) AcceptTerms(c *gin.Context) {
	contractID, role, ok := h.contractAndRole(c)
	if !ok {
		return
	}

	contract, err := h.service.AcceptTerms(c.Request.Context(), contractID, role)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, toContractView(contract))
}

type confirmationEmailRequest struct {
	Role  string `json:"role"`
	Email string `json:"email"`
}

// POST /api/negotiations/:negotiationId/confirmation-email
func (h *NegotiationHandler) RequestConfirmationEmail(c *gin.Context) {
	contract, ok := h.lookupContract(c)
	if !ok {
		return
	}

	var req confirmationEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if err := h.service.RequestEmailConfirmation(c.Request.Context(), contract.ID, role, req.Email); err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, gin.H{"requested": true})
}

// POST /api/negotiations/:negotiationId/finalize
func (h *NegotiationHandler) Finalize(c *gin.Context) {
	contract, ok := h.lookupContract(c)
	if !ok {
		return
	}

	finalized, err := h.service.Finalize(c.Request.Context(), contract.ID)
	if err != nil {
		h.log.Error("finalize failed", "contract_id", contract.ID, "error", err)
		respondDomainError(c, err)
		return
	}
	respondOK(c, toContractView(finalized))
}

// POST /api/negotiations/:negotiationId/cancel
func (h *NegotiationHandler) Cancel(c *gin.Context) {
	contract, ok := h.lookupContract(c)
	if !ok {
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), contract.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, toContractView(cancelled))
}

// PATCH /api/negotiations/:negotiationId/fields
func (h *NegotiationHandler) PatchFields(c *gin.Context) {
	contract, ok := h.lookupContract(c)
	if !ok {
		return
	}

	var patch domain.FieldsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	updated, err := h.service.UpdateFields(c.Request.Context(), contract.ID, patch)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, toContractView(updated))
}

// lookupContract resolves the path's negotiation id to its contract
func (h *NegotiationHandler) lookupContract(c *gin.Context) (*domain.Contract, bool) {
	view, err := h.service.Status(c.Request.Context(), c.Param("negotiationId"))
	if err != nil {
		respondDomainError(c, err)
		return nil, false
	}
	return &domain.Contract{ID: view.ContractID, NegotiationID: view.NegotiationID}, true
}

func (h *NegotiationHandler) contractAndRole(c *gin.Context) (uuid.UUID, domain.PartyRole, bool) {
	contract, ok := h.lookupContract(c)
	if !ok {
		return uuid.Nil, "", false
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err)
		return uuid.Nil, "", false
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		respondDomainError(c, err)
		return uuid.Nil, "", false
	}
	return contract.ID, role, true
}
