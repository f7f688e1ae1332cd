package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// BroadcastResult is the chain's immediate answer to a submitted transaction.
type BroadcastResult struct {
	TxHash string
	Code   uint32
	RawLog string
}

// TxResponse is a transaction as reported by the LCD.
type TxResponse struct {
	Height    string `json:"height"`
	TxHash    string `json:"txhash"`
	Code      uint32 `json:"code"`
	Codespace string `json:"codespace,omitempty"`
	RawLog    string `json:"raw_log"`
	GasWanted string `json:"gas_wanted"`
	GasUsed   string `json:"gas_used"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Account is the on-chain signing state of an address.
type Account struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// LCD is a client for the chain's REST interface.
type LCD struct {
	http *resty.Client
}

// NewLCD creates a client against baseURL.
func NewLCD(baseURL string, timeout time.Duration) *LCD {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LCD{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

type lcdError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func responseError(op string, resp *resty.Response) error {
	var e lcdError
	if err := json.Unmarshal(resp.Body(), &e); err == nil && e.Message != "" {
		return fmt.Errorf("%s: %s", op, e.Message)
	}
	return fmt.Errorf("%s: status %d", op, resp.StatusCode())
}

type accountResponse struct {
	Account struct {
		Address       string `json:"address"`
		AccountNumber string `json:"account_number"`
		Sequence      string `json:"sequence"`
	} `json:"account"`
}

// Account fetches the account number and sequence of address.
func (l *LCD) Account(ctx context.Context, address string) (Account, error) {
	var out accountResponse
	resp, err := l.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/cosmos/auth/v1beta1/accounts/" + address)
	if err != nil {
		return Account{}, fmt.Errorf("account: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Account{}, responseError("account", resp)
	}

	num, err := strconv.ParseUint(out.Account.AccountNumber, 10, 64)
	if err != nil {
		return Account{}, fmt.Errorf("account: account_number %q: %w", out.Account.AccountNumber, err)
	}
	seq, err := strconv.ParseUint(out.Account.Sequence, 10, 64)
	if err != nil {
		return Account{}, fmt.Errorf("account: sequence %q: %w", out.Account.Sequence, err)
	}
	return Account{Address: out.Account.Address, AccountNumber: num, Sequence: seq}, nil
}

type txEnvelope struct {
	TxResponse TxResponse `json:"tx_response"`
}

// BroadcastTx submits raw tx bytes in sync mode.
func (l *LCD) BroadcastTx(ctx context.Context, txBytes []byte) (BroadcastResult, error) {
	var out txEnvelope
	resp, err := l.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"tx_bytes": base64.StdEncoding.EncodeToString(txBytes),
			"mode":     "BROADCAST_MODE_SYNC",
		}).
		SetResult(&out).
		Post("/cosmos/tx/v1beta1/txs")
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("%w: %w", ErrBroadcast, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return BroadcastResult{}, fmt.Errorf("%w: %w", ErrBroadcast, responseError("broadcast", resp))
	}
	return BroadcastResult{
		TxHash: out.TxResponse.TxHash,
		Code:   out.TxResponse.Code,
		RawLog: out.TxResponse.RawLog,
	}, nil
}

// GetTx looks up a transaction by hash.
func (l *LCD) GetTx(ctx context.Context, hash string) (*TxResponse, error) {
	var out txEnvelope
	resp, err := l.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/cosmos/tx/v1beta1/txs/" + hash)
	if err != nil {
		return nil, fmt.Errorf("get tx: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, hash)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, responseError("get tx", resp)
	}
	return &out.TxResponse, nil
}

type queryResponse struct {
	Data string `json:"data"`
}

// QueryContract runs a smart query and decodes the JSON answer into out.
func (l *LCD) QueryContract(ctx context.Context, contract string, query any, out any) error {
	q, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("query contract: %w", err)
	}

	var res queryResponse
	resp, err := l.http.R().
		SetContext(ctx).
		SetQueryParam("query", base64.StdEncoding.EncodeToString(q)).
		SetResult(&res).
		Get("/compute/v1beta1/query/" + contract)
	if err != nil {
		return fmt.Errorf("query contract: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return responseError("query contract", resp)
	}

	data, err := base64.StdEncoding.DecodeString(res.Data)
	if err != nil {
		return fmt.Errorf("query contract: decode data: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("query contract: %w", err)
	}
	return nil
}

type balanceResponse struct {
	Balance struct {
		Amount string `json:"amount"`
	} `json:"balance"`
}

// TokenBalance returns the raw SNIP-20 balance of address.
func (l *LCD) TokenBalance(ctx context.Context, token, address, viewingKey string) (string, error) {
	var out balanceResponse
	if err := l.QueryContract(ctx, token, BalanceQuery(address, viewingKey), &out); err != nil {
		return "", err
	}
	if out.Balance.Amount == "" {
		return "", fmt.Errorf("query contract: no balance in response")
	}
	return out.Balance.Amount, nil
}
