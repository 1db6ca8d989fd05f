package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNoticeTransitions(t *testing.T) {
	assert.True(t, CanTransitionNotice(NoticeStatusDraft, NoticeStatusPendingConfirm))
	assert.True(t, CanTransitionNotice(NoticeStatusDraft, NoticeStatusConfirmed))
	assert.True(t, CanTransitionNotice(NoticeStatusPendingConfirm, NoticeStatusConfirmed))
	assert.True(t, CanTransitionNotice(NoticeStatusPendingConfirm, NoticeStatusDisputed))
	assert.True(t, CanTransitionNotice(NoticeStatusDisputed, NoticeStatusArbitrated))

	assert.False(t, CanTransitionNotice(NoticeStatusDraft, NoticeStatusDisputed))
	assert.False(t, CanTransitionNotice(NoticeStatusPendingConfirm, NoticeStatusArbitrated))
	assert.False(t, CanTransitionNotice(NoticeStatusConfirmed, NoticeStatusDisputed))
	assert.False(t, CanTransitionNotice(NoticeStatusArbitrated, NoticeStatusConfirmed))
	assert.False(t, CanTransitionNotice("UNKNOWN", NoticeStatusConfirmed))

	for from, targets := range noticeTransitions {
		for _, to := range targets {
			_, ok := noticeTransitions[to]
			assert.True(t, ok, "%s -> %s", from, to)
		}
	}
}

func TestNoticePreconditionMessages(t *testing.T) {
	assert.Contains(t, NoticePrecondition(NoticeStatusPendingConfirm), "illegal state operation")
	assert.Contains(t, NoticePrecondition(NoticeStatusConfirmed), "can be confirmed")
	assert.Contains(t, NoticePrecondition(NoticeStatusDisputed), "can be disputed")
	assert.Contains(t, NoticePrecondition(NoticeStatusArbitrated), "can be arbitrated")
}

func TestRequiresFinanceSync(t *testing.T) {
	id := "supplier-1"
	empty := ""
	assert.True(t, (&LiabilityNotice{LiablePartyType: LiablePartyFactory, LiablePartyID: &id}).RequiresFinanceSync())
	assert.False(t, (&LiabilityNotice{LiablePartyType: LiablePartyFactory}).RequiresFinanceSync())
	assert.False(t, (&LiabilityNotice{LiablePartyType: LiablePartyFactory, LiablePartyID: &empty}).RequiresFinanceSync())
	assert.False(t, (&LiabilityNotice{LiablePartyType: LiablePartyInstaller, LiablePartyID: &id}).RequiresFinanceSync())
}

func TestPartyLabels(t *testing.T) {
	for _, p := range LiablePartyTypes() {
		assert.True(t, p.IsValid())
		assert.NotEqual(t, string(p), p.Label())
	}
	assert.Equal(t, "MARTIAN", LiablePartyType("MARTIAN").Label())
}

func TestGradeDeduction(t *testing.T) {
	limit := decimal.NewNullDecimal(decimal.RequireFromString("5000"))
	assert.Equal(t, DeductionStatusNormal, GradeDeduction(decimal.RequireFromString("4499.99"), limit))
	assert.Equal(t, DeductionStatusWarning, GradeDeduction(decimal.RequireFromString("4500"), limit))
	assert.Equal(t, DeductionStatusBlocked, GradeDeduction(decimal.RequireFromString("5000"), limit))
	assert.Equal(t, DeductionStatusNormal, GradeDeduction(decimal.RequireFromString("99999"), decimal.NullDecimal{}))
}

func TestQualityAnalyticsSummarize(t *testing.T) {
	q := QualityAnalytics{
		ByParty: []PartyLiabilityRow{
			{PartyType: LiablePartyFactory, Count: 2, TotalAmount: decimal.RequireFromString("100.10")},
			{PartyType: LiablePartyInstaller, Count: 1, TotalAmount: decimal.RequireFromString("0.20")},
		},
		ByStatus: []TicketStatusRow{{Status: TicketStatusPending, Count: 3}, {Status: TicketStatusClosed, Count: 4}},
	}
	q.Summarize()
	assert.Equal(t, "100.3", q.Summary.TotalLiabilityAmount.String())
	assert.Equal(t, int64(3), q.Summary.TotalLiabilityCount)
	assert.Equal(t, int64(7), q.Summary.TotalTickets)
}
