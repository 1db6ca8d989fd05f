package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/finance"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/sequence"
)

const (
	tenantA = "tenant-a"
	tenantB = "tenant-b"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func sessionFor(tenantID string) *domain.Session {
	return &domain.Session{UserID: "user-1", TenantID: tenantID, Permissions: []string{"*"}}
}

// memStore is an in-memory database behind the repository fakes. Ticket row
// locks taken through GetForUpdate are held until the owning fakeTx ends.
type memStore struct {
	mu        sync.Mutex
	tickets   map[string]*domain.AfterSalesTicket
	notices   map[string]*domain.LiabilityNotice
	ledger    []domain.DebtLedgerEntry
	audits    []domain.AuditLogEntry
	sequences map[string]int64

	rowLocks sync.Map

	noticeInserts   int
	auditErr        error
	updateStatusErr error
	financeErr      error
}

func newMemStore() *memStore {
	return &memStore{
		tickets:   make(map[string]*domain.AfterSalesTicket),
		notices:   make(map[string]*domain.LiabilityNotice),
		sequences: make(map[string]int64),
	}
}

func (s *memStore) lockRow(q repository.DBTX, id string) {
	tx, ok := q.(*fakeTx)
	if !ok {
		return
	}
	l, _ := s.rowLocks.LoadOrStore(id, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	tx.hold(mu)
}

func (s *memStore) addTicket(tenantID string, status domain.TicketStatus) *domain.AfterSalesTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &domain.AfterSalesTicket{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		TicketNo:        "AS202603010001",
		OrderID:         "order-1",
		CustomerID:      "customer-1",
		Type:            domain.TicketTypeRepair,
		Status:          status,
		Priority:        domain.TicketPriorityMedium,
		Description:     "leaking cabinet",
		ActualDeduction: decimal.Zero,
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
	}
	s.tickets[t.ID] = t
	return t
}

func (s *memStore) addNotice(ticket *domain.AfterSalesTicket, party domain.LiablePartyType, partyID *string, amount string, status domain.NoticeStatus) *domain.LiabilityNotice {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := &domain.LiabilityNotice{
		ID:              uuid.NewString(),
		TenantID:        ticket.TenantID,
		NoticeNo:        "LN202603010001",
		TicketID:        ticket.ID,
		LiablePartyType: party,
		LiablePartyID:   partyID,
		Reason:          "defective hinge",
		Amount:          decimal.RequireFromString(amount),
		Evidence:        []string{},
		Status:          status,
		FinanceStatus:   domain.FinanceStatusNone,
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
	}
	s.notices[n.ID] = n
	return n
}

func (s *memStore) ticket(id string) domain.AfterSalesTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tickets[id]
}

func (s *memStore) notice(id string) domain.LiabilityNotice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.notices[id]
}

func (s *memStore) auditCount(action domain.AuditAction) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, entry := range s.audits {
		if entry.Action == action {
			n++
		}
	}
	return n
}

// fakePool stands in for *pgxpool.Pool.
type fakePool struct {
	mu  sync.Mutex
	txs []*fakeTx
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	p.mu.Lock()
	p.txs = append(p.txs, tx)
	p.mu.Unlock()
	return tx, nil
}

func (p *fakePool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("fakePool: unexpected Exec")
}

func (p *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("fakePool: unexpected Query")
}

func (p *fakePool) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("fakePool: unexpected QueryRow")
}

func (p *fakePool) last() *fakeTx {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.txs) == 0 {
		return nil
	}
	return p.txs[len(p.txs)-1]
}

type fakeTx struct {
	mu        sync.Mutex
	committed bool
	rolled    bool
	held      []*sync.Mutex
}

func (f *fakeTx) hold(mu *sync.Mutex) {
	f.mu.Lock()
	f.held = append(f.held, mu)
	f.mu.Unlock()
}

func (f *fakeTx) release() {
	f.mu.Lock()
	held := f.held
	f.held = nil
	f.mu.Unlock()
	for _, mu := range held {
		mu.Unlock()
	}
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.mu.Lock()
	if f.committed || f.rolled {
		f.mu.Unlock()
		return pgx.ErrTxClosed
	}
	f.committed = true
	f.mu.Unlock()
	f.release()
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.mu.Lock()
	if f.committed || f.rolled {
		f.mu.Unlock()
		return pgx.ErrTxClosed
	}
	f.rolled = true
	f.mu.Unlock()
	f.release()
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}

type fakeTickets struct{ s *memStore }

func (r fakeTickets) Create(_ context.Context, _ repository.DBTX, ticket *domain.AfterSalesTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket.ID = uuid.NewString()
	ticket.ActualDeduction = decimal.Zero
	ticket.CreatedAt = fixedNow
	ticket.UpdatedAt = fixedNow
	copied := *ticket
	r.s.tickets[ticket.ID] = &copied
	return nil
}

func (r fakeTickets) GetByID(_ context.Context, _ repository.DBTX, tenantID, id string) (*domain.AfterSalesTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (r fakeTickets) GetForUpdate(ctx context.Context, q repository.DBTX, tenantID, id string) (*domain.AfterSalesTicket, error) {
	r.s.lockRow(q, id)
	return r.GetByID(ctx, q, tenantID, id)
}

func (r fakeTickets) UpdateStatus(_ context.Context, _ repository.DBTX, ticket *domain.AfterSalesTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.updateStatusErr != nil {
		return r.s.updateStatusErr
	}
	t, ok := r.s.tickets[ticket.ID]
	if !ok || t.TenantID != ticket.TenantID {
		return pgx.ErrNoRows
	}
	t.Status = ticket.Status
	t.Resolution = ticket.Resolution
	t.AssigneeID = ticket.AssigneeID
	t.ClosedAt = ticket.ClosedAt
	return nil
}

func (r fakeTickets) SetActualDeduction(_ context.Context, _ repository.DBTX, tenantID, id string, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	t.ActualDeduction = amount
	return nil
}

func (r fakeTickets) CloseCost(_ context.Context, _ repository.DBTX, ticket *domain.AfterSalesTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[ticket.ID]
	if !ok || t.TenantID != ticket.TenantID {
		return pgx.ErrNoRows
	}
	t.TotalActualCost = ticket.TotalActualCost
	t.InternalLoss = ticket.InternalLoss
	t.Status = ticket.Status
	t.ClosedAt = ticket.ClosedAt
	return nil
}

func (r fakeTickets) ListWithFilter(_ context.Context, _ repository.DBTX, filter repository.TicketFilter) ([]domain.AfterSalesTicket, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.AfterSalesTicket{}
	for _, t := range r.s.tickets {
		if t.TenantID == filter.TenantID {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

func (r fakeTickets) CountByType(_ context.Context, _ repository.DBTX, tenantID string) ([]domain.TicketTypeRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[domain.TicketType]int64{}
	for _, t := range r.s.tickets {
		if t.TenantID == tenantID {
			counts[t.Type]++
		}
	}
	rows := []domain.TicketTypeRow{}
	for typ, n := range counts {
		rows = append(rows, domain.TicketTypeRow{Type: typ, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Type < rows[j].Type })
	return rows, nil
}

func (r fakeTickets) CountByStatus(_ context.Context, _ repository.DBTX, tenantID string) ([]domain.TicketStatusRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[domain.TicketStatus]int64{}
	for _, t := range r.s.tickets {
		if t.TenantID == tenantID {
			counts[t.Status]++
		}
	}
	rows := []domain.TicketStatusRow{}
	for status, n := range counts {
		rows = append(rows, domain.TicketStatusRow{Status: status, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Status < rows[j].Status })
	return rows, nil
}

type fakeNotices struct{ s *memStore }

func (r fakeNotices) Create(_ context.Context, _ repository.DBTX, notice *domain.LiabilityNotice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.noticeInserts++
	notice.ID = uuid.NewString()
	notice.CreatedAt = fixedNow
	notice.UpdatedAt = fixedNow
	copied := *notice
	r.s.notices[notice.ID] = &copied
	return nil
}

func (r fakeNotices) GetByID(_ context.Context, _ repository.DBTX, tenantID, id string) (*domain.LiabilityNotice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notices[id]
	if !ok || n.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	copied := *n
	return &copied, nil
}

func (r fakeNotices) GetForUpdate(ctx context.Context, q repository.DBTX, tenantID, id string) (*domain.LiabilityNotice, error) {
	r.s.lockRow(q, "notice:"+id)
	return r.GetByID(ctx, q, tenantID, id)
}

func (r fakeNotices) ListByTicket(_ context.Context, _ repository.DBTX, tenantID, ticketID string) ([]domain.LiabilityNotice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.LiabilityNotice{}
	for _, n := range r.s.notices {
		if n.TenantID == tenantID && n.TicketID == ticketID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r fakeNotices) UpdateDraft(_ context.Context, _ repository.DBTX, notice *domain.LiabilityNotice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notices[notice.ID]
	if !ok || n.Status != domain.NoticeStatusDraft {
		return pgx.ErrNoRows
	}
	n.LiablePartyType = notice.LiablePartyType
	n.LiablePartyID = notice.LiablePartyID
	n.Reason = notice.Reason
	n.ReasonCategory = notice.ReasonCategory
	n.Amount = notice.Amount
	n.Evidence = notice.Evidence
	return nil
}

func (r fakeNotices) UpdateStatus(_ context.Context, _ repository.DBTX, notice *domain.LiabilityNotice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notices[notice.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	n.Status = notice.Status
	n.ConfirmedAt = notice.ConfirmedAt
	n.ConfirmedBy = notice.ConfirmedBy
	n.DisputeReason = notice.DisputeReason
	n.ArbitrationResult = notice.ArbitrationResult
	n.ArbitratedBy = notice.ArbitratedBy
	n.ArbitratedAt = notice.ArbitratedAt
	return nil
}

func (r fakeNotices) SetFinanceStatus(_ context.Context, _ repository.DBTX, tenantID, id string, status domain.FinanceStatus, syncedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.financeErr != nil {
		return r.s.financeErr
	}
	n, ok := r.s.notices[id]
	if !ok || n.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	n.FinanceStatus = status
	n.FinanceSyncedAt = syncedAt
	return nil
}

func (r fakeNotices) SumConfirmedByTicket(_ context.Context, _ repository.DBTX, tenantID, ticketID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := decimal.Zero
	for _, n := range r.s.notices {
		if n.TenantID == tenantID && n.TicketID == ticketID && n.Status == domain.NoticeStatusConfirmed {
			total = total.Add(n.Amount)
		}
	}
	return total, nil
}

func (r fakeNotices) CountFinanceClosure(_ context.Context, _ repository.DBTX, tenantID, ticketID string) (repository.FinanceClosureCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var counts repository.FinanceClosureCounts
	for _, n := range r.s.notices {
		if n.TenantID == tenantID && n.TicketID == ticketID {
			counts.Total++
			if n.FinanceStatus != domain.FinanceStatusSynced {
				counts.Unsynced++
			}
		}
	}
	return counts, nil
}

func (r fakeNotices) SummarizeConfirmedByParty(_ context.Context, _ repository.DBTX, tenantID string, _ domain.AnalyticsRange) ([]domain.PartyLiabilityRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := map[domain.LiablePartyType]*domain.PartyLiabilityRow{}
	for _, n := range r.s.notices {
		if n.TenantID != tenantID || n.Status != domain.NoticeStatusConfirmed {
			continue
		}
		row, ok := rows[n.LiablePartyType]
		if !ok {
			row = &domain.PartyLiabilityRow{PartyType: n.LiablePartyType, PartyLabel: n.LiablePartyType.Label(), TotalAmount: decimal.Zero}
			rows[n.LiablePartyType] = row
		}
		row.Count++
		row.TotalAmount = row.TotalAmount.Add(n.Amount)
	}
	out := []domain.PartyLiabilityRow{}
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartyType < out[j].PartyType })
	return out, nil
}

func (r fakeNotices) CountUnsyncedFactoryByTenant(_ context.Context, _ repository.DBTX) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]int64{}
	for _, n := range r.s.notices {
		if n.Status == domain.NoticeStatusConfirmed && n.RequiresFinanceSync() && n.FinanceStatus != domain.FinanceStatusSynced {
			out[n.TenantID]++
		}
	}
	return out, nil
}

type fakeLedger struct{ s *memStore }

func (r fakeLedger) Append(_ context.Context, _ repository.DBTX, entry *domain.DebtLedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = fixedNow
	r.s.ledger = append(r.s.ledger, *entry)
	return nil
}

func (r fakeLedger) matches(e domain.DebtLedgerEntry, tenantID string, partyType domain.LiablePartyType, partyID string) bool {
	return e.TenantID == tenantID && e.LiablePartyType == partyType && e.LiablePartyID != nil && *e.LiablePartyID == partyID
}

func (r fakeLedger) ListByParty(_ context.Context, _ repository.DBTX, tenantID string, partyType domain.LiablePartyType, partyID string, limit int) ([]domain.DebtLedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.DebtLedgerEntry{}
	for _, e := range r.s.ledger {
		if r.matches(e, tenantID, partyType, partyID) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r fakeLedger) SummarizeByParty(_ context.Context, _ repository.DBTX, tenantID string, partyType domain.LiablePartyType, partyID string) (repository.LedgerTotals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	totals := repository.LedgerTotals{Total: decimal.Zero}
	for _, e := range r.s.ledger {
		if r.matches(e, tenantID, partyType, partyID) {
			totals.Total = totals.Total.Add(e.Amount)
			totals.Count++
		}
	}
	return totals, nil
}

type fakeAudit struct{ s *memStore }

func (r fakeAudit) Create(_ context.Context, _ repository.DBTX, entry *domain.AuditLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.auditErr != nil {
		return r.s.auditErr
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = fixedNow
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r fakeAudit) ListByRecords(_ context.Context, _ repository.DBTX, tenantID string, recordIDs []string) ([]domain.AuditLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range recordIDs {
		wanted[id] = true
	}
	out := []domain.AuditLogEntry{}
	for _, e := range r.s.audits {
		if e.TenantID == tenantID && wanted[e.RecordID] {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeSequences struct{ s *memStore }

func (r fakeSequences) Increment(_ context.Context, _ repository.DBTX, tenantID, prefix string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := tenantID + "|" + prefix
	v, ok := r.s.sequences[key]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	v++
	r.s.sequences[key] = v
	return v, nil
}

func (r fakeSequences) MaxNumber(context.Context, repository.DBTX, repository.DocumentTable, string, string) (string, error) {
	return "", nil
}

func (r fakeSequences) Seed(_ context.Context, _ repository.DBTX, tenantID, prefix string, lastValue int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := tenantID + "|" + prefix
	if _, ok := r.s.sequences[key]; !ok {
		r.s.sequences[key] = lastValue
	}
	return nil
}

type mockStatementClient struct {
	mock.Mock
}

func (m *mockStatementClient) CreateSupplierLiabilityStatement(ctx context.Context, req finance.StatementRequest) error {
	return m.Called(ctx, req).Error(0)
}

// newTestDeps wires every fake around one store.
func newTestDeps(store *memStore, client finance.StatementClient) (Dependencies, *fakePool) {
	pool := &fakePool{}
	deps := Dependencies{
		DB:             pool,
		Tickets:        fakeTickets{store},
		Notices:        fakeNotices{store},
		Ledger:         fakeLedger{store},
		Audit:          fakeAudit{store},
		Sequences:      sequence.NewGenerator(fakeSequences{store}, sequence.WithClock(func() time.Time { return fixedNow })),
		Finance:        client,
		FinanceTimeout: 200 * time.Millisecond,
		Clock:          func() time.Time { return fixedNow },
	}
	return deps, pool
}

func ptr[T any](v T) *T {
	return &v
}
