package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/api/dto"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/service"
)

// LiabilityHandler serves the liability notice workflow.
type LiabilityHandler struct {
	service *service.LiabilityService
}

// NewLiabilityHandler constructs handler.
func NewLiabilityHandler(liability *service.LiabilityService) *LiabilityHandler {
	return &LiabilityHandler{service: liability}
}

func writeNotice(c *fiber.Ctx, status int, result service.Result[*domain.LiabilityNotice], err error) error {
	return writeResult(c, status, result, err, func(n *domain.LiabilityNotice) any {
		return noticeResponse(n)
	})
}

func reasonCategory(raw *string) *domain.ReasonCategory {
	if raw == nil || *raw == "" {
		return nil
	}
	c := domain.ReasonCategory(*raw)
	return &c
}

// Create POST /tickets/:id/liability-notices.
func (h *LiabilityHandler) Create(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateNoticeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	input := service.NoticeCreateInput{
		PartyType:      domain.LiablePartyType(req.LiablePartyType),
		PartyID:        req.LiablePartyID,
		Reason:         req.Reason,
		ReasonCategory: reasonCategory(req.ReasonCategory),
		Amount:         *req.Amount,
		Evidence:       req.Evidence,
	}
	result, err := h.service.CreateNotice(c.UserContext(), session, c.Params("id"), input)
	return writeNotice(c, http.StatusCreated, result, err)
}

// List GET /tickets/:id/liability-notices.
func (h *LiabilityHandler) List(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	result, err := h.service.ListByTicket(c.UserContext(), session, c.Params("id"))
	return writeResult(c, http.StatusOK, result, err, func(notices []domain.LiabilityNotice) any {
		return noticeResponses(notices)
	})
}

// Revise PATCH /liability-notices/:id.
func (h *LiabilityHandler) Revise(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.ReviseNoticeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	rev := service.NoticeRevision{
		PartyID:        req.LiablePartyID,
		Reason:         req.Reason,
		ReasonCategory: reasonCategory(req.ReasonCategory),
		Amount:         req.Amount,
		Evidence:       req.Evidence,
	}
	if req.LiablePartyType != nil {
		pt := domain.LiablePartyType(*req.LiablePartyType)
		rev.PartyType = &pt
	}
	result, err := h.service.ReviseDraft(c.UserContext(), session, c.Params("id"), rev)
	return writeNotice(c, http.StatusOK, result, err)
}

// Submit POST /liability-notices/:id/submit.
func (h *LiabilityHandler) Submit(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	result, err := h.service.SubmitNotice(c.UserContext(), session, c.Params("id"))
	return writeNotice(c, http.StatusOK, result, err)
}

// Confirm POST /liability-notices/:id/confirm.
func (h *LiabilityHandler) Confirm(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	result, err := h.service.ConfirmNotice(c.UserContext(), session, c.Params("id"))
	return writeResult(c, http.StatusOK, result, err, func(o service.ConfirmOutcome) any {
		resp := dto.ConfirmNoticeResponse{
			Notice:          noticeResponse(o.Notice),
			ActualDeduction: o.ActualDeduction.StringFixed(2),
		}
		if o.LedgerEntry != nil {
			resp.LedgerEntryID = &o.LedgerEntry.ID
		}
		return resp
	})
}

// Dispute POST /liability-notices/:id/dispute.
func (h *LiabilityHandler) Dispute(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.DisputeNoticeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := h.service.DisputeNotice(c.UserContext(), session, c.Params("id"), req.Reason)
	return writeNotice(c, http.StatusOK, result, err)
}

// Arbitrate POST /liability-notices/:id/arbitrate.
func (h *LiabilityHandler) Arbitrate(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.ArbitrateNoticeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := h.service.ArbitrateNotice(c.UserContext(), session, c.Params("id"), req.Result)
	return writeNotice(c, http.StatusOK, result, err)
}

// RetryFinanceSync POST /liability-notices/:id/finance-sync.
func (h *LiabilityHandler) RetryFinanceSync(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	result, err := h.service.RetryFinanceSync(c.UserContext(), session, c.Params("id"))
	return writeNotice(c, http.StatusOK, result, err)
}
