package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/persistence"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sequence"
)

// startPostgres runs a throwaway database with the embedded schema applied.
// Set AFTERSALES_IT=1 to enable; it needs a container runtime.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("AFTERSALES_IT") != "1" {
		t.Skip("set AFTERSALES_IT=1 to run postgres integration tests")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("aftersales_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, persistence.RunMigrations(dsn, zaptest.NewLogger(t)))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func realDeps(t *testing.T, pool *pgxpool.Pool, client *mockStatementClient) Dependencies {
	return Dependencies{
		DB:             pool,
		Tickets:        repository.NewTicketRepository(),
		Notices:        repository.NewLiabilityNoticeRepository(),
		Ledger:         repository.NewDebtLedgerRepository(),
		Audit:          repository.NewAuditRepository(),
		Sequences:      sequence.NewGenerator(repository.NewSequenceRepository()),
		Finance:        client,
		FinanceTimeout: 2 * time.Second,
		Logger:         zaptest.NewLogger(t),
	}
}

func TestPostgresConcurrentConfirmations(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	client := &mockStatementClient{}
	client.On("CreateSupplierLiabilityStatement", mock.Anything, mock.Anything).Return(nil)
	deps := realDeps(t, pool, client)

	tickets := NewTicketService(deps)
	liability := NewLiabilityService(deps)
	session := sessionFor(tenantA)

	created, err := tickets.CreateTicket(ctx, session, TicketCreateInput{
		OrderID:     "SO-1001",
		CustomerID:  "C-77",
		Type:        domain.TicketTypeRepair,
		Description: "hinge broke after install",
	})
	require.NoError(t, err)
	require.True(t, created.Success, created.Message)
	ticketID := created.Data.ID

	const n = 12
	noticeIDs := make([]string, 0, n)
	expected := decimal.Zero
	for i := 0; i < n; i++ {
		party := domain.LiablePartyInstaller
		partyID := ptr("inst-1")
		if i%3 == 0 {
			party = domain.LiablePartyFactory
			partyID = ptr("factory-9")
		}
		amount := decimal.New(int64(100+i*25), -1)
		expected = expected.Add(amount)
		res, err := liability.CreateNotice(ctx, session, ticketID, NoticeCreateInput{
			PartyType: party,
			PartyID:   partyID,
			Reason:    fmt.Sprintf("finding %d", i),
			Amount:    amount,
		})
		require.NoError(t, err)
		require.True(t, res.Success, res.Message)
		noticeIDs = append(noticeIDs, res.Data.ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range noticeIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := liability.ConfirmNotice(ctx, session, id)
			if err != nil {
				errs <- err
				return
			}
			if !res.Success {
				errs <- fmt.Errorf("confirm %s: %s", id, res.Message)
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	ticket, err := deps.Tickets.GetByID(ctx, pool, tenantA, ticketID)
	require.NoError(t, err)
	assert.True(t, expected.Equal(ticket.ActualDeduction), "deduction %s, expected %s", ticket.ActualDeduction, expected)

	var ledgerRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM debt_ledger_entries WHERE ticket_id=$1`, ticketID).Scan(&ledgerRows))
	assert.Equal(t, n, ledgerRows)

	closure, err := liability.CheckTicketFinancialClosure(ctx, session, ticketID)
	require.NoError(t, err)
	// Only the four FACTORY notices reach finance; the rest stay NONE.
	assert.False(t, closure.Data.IsClosed)
	assert.EqualValues(t, n, closure.Data.TotalNotices)
	assert.EqualValues(t, 8, closure.Data.UnsyncedCount)

	_, err = pool.Exec(ctx, `UPDATE debt_ledger_entries SET amount = 0 WHERE ticket_id=$1`, ticketID)
	assert.Error(t, err, "ledger rows must be append-only")
}

func TestPostgresSequencesAreUniqueUnderConcurrency(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	deps := realDeps(t, pool, &mockStatementClient{})
	tickets := NewTicketService(deps)
	session := sessionFor(tenantB)

	const n = 10
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := tickets.CreateTicket(ctx, session, TicketCreateInput{
				OrderID:     fmt.Sprintf("SO-%d", i),
				CustomerID:  "C-1",
				Type:        domain.TicketTypeComplaint,
				Description: "noise",
			})
			if assert.NoError(t, err) && assert.True(t, res.Success, res.Message) {
				numbers <- res.Data.TicketNo
			}
		}(i)
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for no := range numbers {
		assert.False(t, seen[no], "duplicate ticket number %s", no)
		seen[no] = true
	}
	assert.Len(t, seen, n)
}
