package scanner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestScanRejectsBadInput(t *testing.T) {
	s := &Scanner{}

	_, err := s.Scan(context.Background(), []byte("data"), "text/plain")
	require.ErrorIs(t, err, ErrUnsupportedType)

	big := make([]byte, maxFileBytes+1)
	_, err = s.Scan(context.Background(), big, "image/png")
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"amount": 1}`, `{"amount": 1}`},
		{"json fence", "```json\n{\"amount\": 1}\n```", `{"amount": 1}`},
		{"bare fence", "```\n{\"amount\": 1}\n```", `{"amount": 1}`},
		{"surrounding prose", "Here is the result:\n{\"amount\": 1}\nHope that helps!", `{"amount": 1}`},
		{"whitespace", "  \n{\"amount\": 1}\n  ", `{"amount": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}

func TestParseReceipt(t *testing.T) {
	r, err := parseReceipt("```json\n" + `{
		"amount": 42.50,
		"date": "2026-03-10",
		"description": "Weekly shop",
		"merchantName": "Esselunga",
		"category": "groceries"
	}` + "\n```")
	require.NoError(t, err)
	assert.True(t, r.Amount.Equal(mustDec("42.5")))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), r.Date)
	assert.Equal(t, "Weekly shop", r.Description)
	assert.Equal(t, "Esselunga", r.MerchantName)
	assert.Equal(t, "groceries", r.Category)
}

func TestParseReceiptRFC3339Date(t *testing.T) {
	r, err := parseReceipt(`{"amount": 10, "date": "2026-03-10T14:30:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, 14, r.Date.Hour())
}

func TestParseReceiptEmptyObjectIsNotAReceipt(t *testing.T) {
	_, err := parseReceipt(`{}`)
	require.ErrorIs(t, err, ErrNotAReceipt)
}

func TestParseReceiptErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing amount", `{"date": "2026-03-10"}`},
		{"missing date", `{"amount": 10}`},
		{"negative amount", `{"amount": -5, "date": "2026-03-10"}`},
		{"bad date", `{"amount": 5, "date": "yesterday"}`},
		{"not json", "the receipt shows a total of 42 euros"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseReceipt(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestParseReceiptUnknownCategoryDefaults(t *testing.T) {
	r, err := parseReceipt(`{"amount": 5, "date": "2026-03-10", "category": "spaceships"}`)
	require.NoError(t, err)
	assert.Equal(t, "other-expense", r.Category)
}

func TestReceiptPromptListsCategories(t *testing.T) {
	for c := range allowedCategories {
		assert.True(t, strings.Contains(receiptPrompt, c), "prompt missing category %s", c)
	}
}
