package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeLCD serves the subset of LCD routes the client uses.
func fakeLCD(t *testing.T, broadcasts *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cosmos/auth/v1beta1/accounts/{addr}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"account": map[string]string{
			"address":        r.PathValue("addr"),
			"account_number": "42",
			"sequence":       "9",
		}})
	})
	mux.HandleFunc("POST /cosmos/tx/v1beta1/txs", func(w http.ResponseWriter, r *http.Request) {
		*broadcasts++
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["mode"] != "BROADCAST_MODE_SYNC" || req["tx_bytes"] == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": 3, "message": "invalid request"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tx_response": map[string]any{
			"txhash": "ABC123", "code": 0, "raw_log": "[]",
		}})
	})
	mux.HandleFunc("GET /cosmos/tx/v1beta1/txs/{hash}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("hash") != "ABC123" {
			writeJSON(w, http.StatusNotFound, map[string]any{"code": 5, "message": "tx not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tx_response": map[string]any{
			"height": "100", "txhash": "ABC123", "code": 0, "raw_log": "[]", "gas_used": "120000",
		}})
	})
	mux.HandleFunc("GET /compute/v1beta1/query/{contract}", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := base64.StdEncoding.DecodeString(r.URL.Query().Get("query"))
		var q struct {
			Balance struct {
				Key string `json:"key"`
			} `json:"balance"`
		}
		_ = json.Unmarshal(raw, &q)
		if q.Balance.Key != "vk" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": 2, "message": "wrong viewing key"})
			return
		}
		data, _ := json.Marshal(map[string]any{"balance": map[string]string{"amount": "1234567"}})
		writeJSON(w, http.StatusOK, map[string]string{"data": base64.StdEncoding.EncodeToString(data)})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLCDAccount(t *testing.T) {
	var n int
	lcd := NewLCD(fakeLCD(t, &n).URL, 5*time.Second)

	acct, err := lcd.Account(context.Background(), "secret1abc")
	require.NoError(t, err)
	assert.Equal(t, Account{Address: "secret1abc", AccountNumber: 42, Sequence: 9}, acct)
}

func TestLCDGetTx(t *testing.T) {
	var n int
	lcd := NewLCD(fakeLCD(t, &n).URL, 5*time.Second)

	tx, err := lcd.GetTx(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "100", tx.Height)
	assert.Equal(t, "120000", tx.GasUsed)

	_, err = lcd.GetTx(context.Background(), "MISSING")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestLCDTokenBalance(t *testing.T) {
	var n int
	lcd := NewLCD(fakeLCD(t, &n).URL, 5*time.Second)

	amount, err := lcd.TokenBalance(context.Background(), testSUSDC, "secret1abc", "vk")
	require.NoError(t, err)
	assert.Equal(t, "1234567", amount)

	_, err = lcd.TokenBalance(context.Background(), testSUSDC, "secret1abc", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong viewing key")
}

func TestBroadcasterBroadcast(t *testing.T) {
	var broadcasts int
	lcd := NewLCD(fakeLCD(t, &broadcasts).URL, 5*time.Second)
	w := testWallet(t)
	b := NewBroadcaster(w, lcd, "secret-4", nil)

	msg, err := testRoute().SwapMsg(w.Address(), "400000")
	require.NoError(t, err)

	res, err := b.Broadcast(context.Background(), []ExecuteMsg{msg}, Fee{GasLimit: 3_500_000, GasPrice: 0.1, Denom: "uscrt"})
	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{TxHash: "ABC123", Code: 0, RawLog: "[]"}, res)
	assert.Equal(t, 1, broadcasts)

	tx, err := b.GetTx(context.Background(), res.TxHash)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", tx.TxHash)
}

func TestBroadcastUnreachable(t *testing.T) {
	lcd := NewLCD("http://127.0.0.1:1", time.Second)
	_, err := lcd.BroadcastTx(context.Background(), []byte{1})
	assert.ErrorIs(t, err, ErrBroadcast)
}
