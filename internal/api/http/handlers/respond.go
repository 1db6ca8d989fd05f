package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/api/dto"
	"github.com/spec-kit/aftersales-service/internal/auth"
	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/service"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

// writeResult renders a service result as the response envelope. A non-nil
// err is returned untouched so the error middleware logs it and answers
// with the generic internal error.
func writeResult[T any](c *fiber.Ctx, successStatus int, result service.Result[T], err error, view func(T) any) error {
	if err != nil {
		return err
	}
	if !result.Success {
		status := http.StatusBadRequest
		var details any
		if result.Failure != nil {
			status = result.Failure.HTTPStatus
			if len(result.Failure.Details) > 0 {
				details = result.Failure.Details
			}
		}
		return c.Status(status).JSON(dto.Envelope{
			Success: false,
			Message: result.Message,
			Code:    result.Code(),
			Details: details,
		})
	}
	return c.Status(successStatus).JSON(dto.Envelope{
		Success: true,
		Data:    view(result.Data),
		Message: result.Message,
		Warning: result.Warning,
	})
}

func sessionFrom(c *fiber.Ctx) (*domain.Session, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("login required")
	}
	return session, nil
}

// bindJSON parses the body into req and runs tag validation.
func bindJSON(c *fiber.Ctx, req any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if derr := dto.Validate(req); derr != nil {
		return derr
	}
	return nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}
