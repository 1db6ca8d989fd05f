// Package finance talks to the finance module that books supplier statements.
package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// StatementPath is the finance endpoint receiving liability statements.
const StatementPath = "/api/v1/supplier-statements/liability"

var (
	// ErrNotConfigured is returned when no finance endpoint is set up.
	ErrNotConfigured = errors.New("finance: base url not configured")
	// ErrClientPanic replaces a panic raised inside a client implementation.
	ErrClientPanic = errors.New("finance: client panicked")
)

// StatementRequest describes the supplier statement to create. NoticeID
// doubles as the idempotency key.
type StatementRequest struct {
	TenantID   string          `json:"tenantId"`
	NoticeID   string          `json:"noticeId"`
	NoticeNo   string          `json:"noticeNo"`
	TicketID   string          `json:"ticketId"`
	SupplierID string          `json:"supplierId"`
	Amount     decimal.Decimal `json:"amount"`
}

// StatementClient creates supplier liability statements.
type StatementClient interface {
	CreateSupplierLiabilityStatement(ctx context.Context, req StatementRequest) error
}

// StatusError is a non-2xx answer from finance.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("finance: unexpected status %d: %s", e.Status, e.Body)
}

// HTTPClient is the production StatementClient.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *fiber.Client
}

// NewHTTPClient builds a client for baseURL. timeout caps each call even
// when the caller's context has a later deadline.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		client: &fiber.Client{
			UserAgent:   "aftersales-service",
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		},
	}
}

func (c *HTTPClient) CreateSupplierLiabilityStatement(ctx context.Context, req StatementRequest) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout || timeout <= 0 {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	agent := c.client.Post(c.baseURL + StatementPath)
	agent.Set("Idempotency-Key", req.NoticeID)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.apiKey != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.apiKey)
	}
	agent.JSON(req).Timeout(timeout)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("finance: create statement: %w", errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return &StatusError{Status: status, Body: truncate(string(body), 256)}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
