package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/api/dto"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps (page-1)*pageSize far from int overflow.
	maxPage = 100000
)

// TicketsHandler serves after-sales ticket endpoints.
type TicketsHandler struct {
	tickets   *service.TicketService
	closure   *service.CostClosureService
	liability *service.LiabilityService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, closure *service.CostClosureService, liability *service.LiabilityService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, closure: closure, liability: liability}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	input := service.TicketCreateInput{
		OrderID:     req.OrderID,
		CustomerID:  req.CustomerID,
		Type:        domain.TicketType(req.Type),
		Priority:    domain.TicketPriority(req.Priority),
		Description: req.Description,
		Photos:      req.Photos,
		AssigneeID:  req.AssigneeID,
	}
	result, err := h.tickets.CreateTicket(c.UserContext(), session, input)
	return writeResult(c, http.StatusCreated, result, err, func(t *domain.AfterSalesTicket) any {
		return ticketResponse(t)
	})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	page, pageSize, offset := pageWindow(parseInt(c.Query("page"), 1), parseInt(c.Query("page_size"), defaultPageSize))

	filter := service.TicketListFilter{Limit: pageSize, Offset: offset}
	for _, raw := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(raw)))
	}
	for _, raw := range splitCSV(c.Query("type")) {
		filter.Types = append(filter.Types, domain.TicketType(strings.ToUpper(raw)))
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	if assignee := strings.TrimSpace(c.Query("assignee_id")); assignee != "" {
		filter.AssigneeID = &assignee
	}

	result, err := h.tickets.ListTickets(c.UserContext(), session, filter)
	return writeResult(c, http.StatusOK, result, err, func(p service.TicketPage) any {
		items := make([]dto.TicketResponse, 0, len(p.Items))
		for i := range p.Items {
			items = append(items, ticketResponse(&p.Items[i]))
		}
		return dto.PageResponse[dto.TicketResponse]{Items: items, Total: p.Total, Page: page, PageSize: pageSize}
	})
}

// pageWindow normalizes paging input and returns the row offset.
func pageWindow(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	result, err := h.tickets.GetTicketDetail(c.UserContext(), session, c.Params("id"))
	return writeResult(c, http.StatusOK, result, err, func(d service.TicketDetail) any {
		return ticketDetailResponse(d)
	})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	next := domain.TicketStatus(strings.ToUpper(req.Status))
	result, err := h.tickets.UpdateTicketStatus(c.UserContext(), session, c.Params("id"), next, req.Resolution)
	return writeResult(c, http.StatusOK, result, err, func(t *domain.AfterSalesTicket) any {
		return ticketResponse(t)
	})
}

// CloseCost POST /tickets/:id/cost-closure.
func (h *TicketsHandler) CloseCost(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req dto.CostClosureRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := h.closure.CloseResolutionCostClosure(c.UserContext(), session, c.Params("id"), req.TotalActualCost)
	return writeResult(c, http.StatusOK, result, err, func(t *domain.AfterSalesTicket) any {
		return ticketResponse(t)
	})
}

// FinancialClosure GET /tickets/:id/financial-closure.
func (h *TicketsHandler) FinancialClosure(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	result, err := h.liability.CheckTicketFinancialClosure(c.UserContext(), session, c.Params("id"))
	return writeResult(c, http.StatusOK, result, err, func(f service.FinancialClosure) any {
		return dto.FinancialClosureResponse{
			TicketID:      f.TicketID,
			IsClosed:      f.IsClosed,
			TotalNotices:  f.TotalNotices,
			UnsyncedCount: f.UnsyncedCount,
			Message:       f.Message,
		}
	})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
