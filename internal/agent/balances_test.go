package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"1234567", "1.234567"},
		{"0", "0.000000"},
		{"5", "0.000005"},
		{"1000000", "1.000000"},
		{"123456789012345678901234567890", "123456789012345678901234.567890"},
		{"Error: Viewing key not set", "Error: Viewing key not set"},
		{"abc", "Error formatting balance"},
		{"-5", "Error formatting balance"},
		{"1.5", "Error formatting balance"},
		{"", "Error formatting balance"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBalance(tt.amount, 6))
		})
	}
}

func TestBalanceReader(t *testing.T) {
	tokens := []Token{
		{Symbol: "sSCRT", Address: "sscrt", ViewingKey: ""},
		{Symbol: "sUSDC", Address: "susdc", ViewingKey: "k"},
	}

	r := NewBalanceReader(&fakeTokens{amounts: map[string]string{"susdc": "2500000"}}, "secret1wallet", tokens, nil)
	assert.Equal(t, "sSCRT Balance: Error: Viewing key not set\nsUSDC Balance: 2.500000", r.Report(context.Background()))

	r = NewBalanceReader(&fakeTokens{err: errors.New("timeout")}, "secret1wallet", tokens[1:], nil)
	got := r.Balances(context.Background())
	assert.Equal(t, []Balance{{
		Symbol:    "sUSDC",
		Raw:       "Error querying balance (timeout)",
		Formatted: "Error querying balance (timeout)",
	}}, got)
}
