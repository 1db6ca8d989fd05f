// Package sequence allocates human-readable, date-scoped document numbers.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/aftersales-service/internal/repository"
)

// Kind selects the document family being numbered.
type Kind string

const (
	KindTicket Kind = "TICKET"
	KindNotice Kind = "NOTICE"
)

type kindSpec struct {
	prefix string
	table  repository.DocumentTable
}

var kinds = map[Kind]kindSpec{
	KindTicket: {prefix: "AS", table: repository.DocumentTableTickets},
	KindNotice: {prefix: "LN", table: repository.DocumentTableNotices},
}

const seqWidth = 4

// Generator produces numbers shaped {PREFIX}{YYYYMMDD}{seq}.
type Generator struct {
	repo     repository.SequenceRepository
	location *time.Location
	now      func() time.Time
}

// Option customizes the generator.
type Option func(*Generator)

// WithLocation sets the business time zone used for day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.location = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator builds a generator backed by the counter table.
func NewGenerator(repo repository.SequenceRepository, opts ...Option) *Generator {
	g := &Generator{repo: repo, location: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next allocates the next number for tenantID. Pass the caller's transaction
// as q so the allocation commits or rolls back with the document it numbers;
// the counter row stays locked until then.
func (g *Generator) Next(ctx context.Context, q repository.DBTX, tenantID string, kind Kind) (string, error) {
	spec, ok := kinds[kind]
	if !ok {
		return "", fmt.Errorf("sequence: unknown kind %q", kind)
	}
	if tenantID == "" {
		return "", errors.New("sequence: tenant id required")
	}

	prefix := spec.prefix + g.now().In(g.location).Format("20060102")

	value, err := g.repo.Increment(ctx, q, tenantID, prefix)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := g.seed(ctx, q, spec.table, tenantID, prefix); err != nil {
			return "", err
		}
		value, err = g.repo.Increment(ctx, q, tenantID, prefix)
	}
	if err != nil {
		return "", fmt.Errorf("sequence: increment %s: %w", prefix, err)
	}
	return Format(prefix, value), nil
}

// seed starts a fresh day's counter after the greatest number already issued
// so numbers written before the counter existed are never reused.
func (g *Generator) seed(ctx context.Context, q repository.DBTX, table repository.DocumentTable, tenantID, prefix string) error {
	latest, err := g.repo.MaxNumber(ctx, q, table, tenantID, prefix)
	if err != nil {
		return fmt.Errorf("sequence: scan %s: %w", prefix, err)
	}
	if err := g.repo.Seed(ctx, q, tenantID, prefix, ParseSuffix(latest, prefix)); err != nil {
		return fmt.Errorf("sequence: seed %s: %w", prefix, err)
	}
	return nil
}

// Format left-pads value to at least four digits after prefix.
func Format(prefix string, value int64) string {
	return fmt.Sprintf("%s%0*d", prefix, seqWidth, value)
}

// ParseSuffix extracts the counter from number, returning 0 when number does
// not carry prefix or the suffix is not numeric.
func ParseSuffix(number, prefix string) int64 {
	if number == "" || !strings.HasPrefix(number, prefix) {
		return 0
	}
	value, err := strconv.ParseInt(number[len(prefix):], 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
