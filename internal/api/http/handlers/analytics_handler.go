package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/service"
	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

// AnalyticsHandler serves dashboard rollups.
type AnalyticsHandler struct {
	service *service.AnalyticsService
	loc     *time.Location
}

// NewAnalyticsHandler constructs handler. Date-only bounds are read in loc.
func NewAnalyticsHandler(analytics *service.AnalyticsService, loc *time.Location) *AnalyticsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsHandler{service: analytics, loc: loc}
}

// Quality GET /analytics/quality.
func (h *AnalyticsHandler) Quality(c *fiber.Ctx) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var rng domain.AnalyticsRange
	if rng.Start, err = h.parseBound(c.Query("start_date"), false); err != nil {
		return apperrors.NewValidationError("invalid start_date", map[string]any{"start_date": c.Query("start_date")})
	}
	if rng.End, err = h.parseBound(c.Query("end_date"), true); err != nil {
		return apperrors.NewValidationError("invalid end_date", map[string]any{"end_date": c.Query("end_date")})
	}
	result, err := h.service.GetQualityAnalytics(c.UserContext(), session, rng)
	return writeResult(c, http.StatusOK, result, err, func(q *domain.QualityAnalytics) any {
		return q
	})
}

// parseBound accepts RFC3339 or a plain date. A plain end date covers the
// whole day.
func (h *AnalyticsHandler) parseBound(raw string, end bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, h.loc)
	if err != nil {
		return nil, err
	}
	if end {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}
