package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSignedDelta(t *testing.T) {
	cases := []struct {
		typ    TransactionType
		amount string
		want   string
	}{
		{Expense, "12.34", "-12.34"},
		{Income, "12.34", "12.34"},
		{Expense, "0.01", "-0.01"},
		{Income, "1000000.99", "1000000.99"},
		{TransactionType("OTHER"), "5", "5"}, // any non-expense type adds
	}
	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.amount)
		got := SignedDelta(tc.typ, amount)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("SignedDelta(%s, %s) = %s, want %s", tc.typ, tc.amount, got, tc.want)
		}
	}
}

func TestSignedDeltaExact(t *testing.T) {
	// 0.1 + 0.2 style sums must stay exact.
	a := SignedDelta(Income, decimal.RequireFromString("0.1"))
	b := SignedDelta(Income, decimal.RequireFromString("0.2"))
	if got := a.Add(b); !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("0.1 + 0.2 = %s, want 0.3", got)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"0", "", false},
		{"-1", "", false},
		{"abc", "", false},
		{"", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
