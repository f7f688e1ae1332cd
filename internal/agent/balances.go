package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed precision of both tracked tokens.
const TokenDecimals = 6

// Balance error strings shown to the user in place of an amount.
const (
	errViewingKeyNotSet  = "Error: Viewing key not set"
	errFormattingBalance = "Error formatting balance"
	balanceErrorPrefix   = "Error"
)

// TokenQuerier reads a raw SNIP-20 balance.
type TokenQuerier interface {
	TokenBalance(ctx context.Context, token, address, viewingKey string) (string, error)
}

// Token is a tracked token and the viewing key used to read its balance.
type Token struct {
	Symbol     string
	Address    string
	ViewingKey string
}

// Balance is one token's balance, raw and formatted.
type Balance struct {
	Symbol    string `json:"symbol"`
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

// BalanceReader queries the wallet's balances of the tracked tokens.
type BalanceReader struct {
	querier TokenQuerier
	address string
	tokens  []Token
	logger  *slog.Logger
}

// NewBalanceReader creates a reader for address.
func NewBalanceReader(querier TokenQuerier, address string, tokens []Token, logger *slog.Logger) *BalanceReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceReader{querier: querier, address: address, tokens: tokens, logger: logger}
}

// Balances returns every token balance. Failures become error strings in Raw.
func (r *BalanceReader) Balances(ctx context.Context) []Balance {
	out := make([]Balance, 0, len(r.tokens))
	for _, tok := range r.tokens {
		raw := r.raw(ctx, tok)
		out = append(out, Balance{Symbol: tok.Symbol, Raw: raw, Formatted: FormatBalance(raw, TokenDecimals)})
	}
	return out
}

// Report renders all balances one per line.
func (r *BalanceReader) Report(ctx context.Context) string {
	lines := make([]string, 0, len(r.tokens))
	for _, b := range r.Balances(ctx) {
		lines = append(lines, fmt.Sprintf("%s Balance: %s", b.Symbol, b.Formatted))
	}
	return strings.Join(lines, "\n")
}

func (r *BalanceReader) raw(ctx context.Context, tok Token) string {
	if tok.ViewingKey == "" {
		return errViewingKeyNotSet
	}
	amount, err := r.querier.TokenBalance(ctx, tok.Address, r.address, tok.ViewingKey)
	if err != nil {
		r.logger.Error("balance query failed", "token", tok.Symbol, "contract", tok.Address, "error", err)
		return fmt.Sprintf("Error querying balance (%s)", err)
	}
	return amount
}

// FormatBalance renders a raw integer amount with a fixed number of decimals,
// e.g. "1234567" at 6 decimals is "1.234567". Amounts that are already error
// strings pass through; anything else that is not a non-negative integer
// yields "Error formatting balance".
func FormatBalance(amount string, decimals int32) string {
	if strings.HasPrefix(amount, balanceErrorPrefix) {
		return amount
	}
	for _, r := range amount {
		if r < '0' || r > '9' {
			return errFormattingBalance
		}
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return errFormattingBalance
	}
	return d.Shift(-decimals).StringFixed(decimals)
}
