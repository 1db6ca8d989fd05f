package dto

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/aftersales-service/pkg/util/errorutil"
)

func TestValidateCreateNotice(t *testing.T) {
	amount := decimal.RequireFromString("120.50")
	ok := CreateNoticeRequest{LiablePartyType: "FACTORY", Reason: "cracked panel", Amount: &amount}
	assert.Nil(t, Validate(ok))

	bad := CreateNoticeRequest{LiablePartyType: "SUPPLIER", Evidence: []string{""}}
	derr := Validate(bad)
	require.NotNil(t, derr)
	assert.Equal(t, apperrors.CodeValidation, derr.Code)

	fields := derr.Details["fields"].([]ValidationDetail)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	assert.ElementsMatch(t, []string{"liablePartyType", "reason", "amount", "evidence[0]"}, names)
}

func TestValidateCreateTicket(t *testing.T) {
	req := CreateTicketRequest{OrderID: "SO-1", CustomerID: "C-1", Type: "REPAIR", Description: "door misaligned"}
	assert.Nil(t, Validate(req))

	req.Priority = "URGENT"
	derr := Validate(req)
	require.NotNil(t, derr)
	fields := derr.Details["fields"].([]ValidationDetail)
	require.Len(t, fields, 1)
	assert.Equal(t, "priority", fields[0].Field)
	assert.Equal(t, "Must be one of: LOW MEDIUM HIGH", fields[0].Message)
}

func TestValidateDisputeRequiresReason(t *testing.T) {
	derr := Validate(DisputeNoticeRequest{})
	require.NotNil(t, derr)
	fields := derr.Details["fields"].([]ValidationDetail)
	assert.Equal(t, "This field is required", fields[0].Message)
}
