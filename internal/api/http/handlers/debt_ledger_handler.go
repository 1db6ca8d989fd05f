package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/service"
)

// DebtLedgerHandler serves per-party ledger summaries.
type DebtLedgerHandler struct {
	service *service.DebtLedgerService
}

// NewDebtLedgerHandler constructs handler.
func NewDebtLedgerHandler(ledger *service.DebtLedgerService) *DebtLedgerHandler {
	return &DebtLedgerHandler{service: ledger}
}

// Summary GET /debt-ledger/:party_type/:party_id.
func (h *DebtLedgerHandler) Summary(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	partyType := domain.LiablePartyType(c.Params("party_type"))
	result, err := h.service.GetSummary(c.UserContext(), session, partyType, c.Params("party_id"))
	return writeResult(c, http.StatusOK, result, err, func(v service.LedgerSummaryView) any {
		return ledgerSummaryResponse(v)
	})
}
