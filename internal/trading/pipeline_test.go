package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/scrt-agent/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memConviction struct {
	mu        sync.Mutex
	convinced map[string]bool
	err       error
}

func newMemConviction() *memConviction {
	return &memConviction{convinced: map[string]bool{}}
}

func (m *memConviction) GetConvinced(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.convinced[userID], m.err
}

func (m *memConviction) SetConvinced(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convinced[userID] = true
	return nil
}

type fakeChain struct {
	result     chain.BroadcastResult
	err        error
	txErr      error
	broadcasts int
	lookups    []string
	lastFee    chain.Fee
	lastMsgs   []chain.ExecuteMsg
}

func (f *fakeChain) Broadcast(_ context.Context, msgs []chain.ExecuteMsg, fee chain.Fee) (chain.BroadcastResult, error) {
	f.broadcasts++
	f.lastMsgs = msgs
	f.lastFee = fee
	return f.result, f.err
}

func (f *fakeChain) GetTx(_ context.Context, hash string) (*chain.TxResponse, error) {
	f.lookups = append(f.lookups, hash)
	if f.txErr != nil {
		return nil, f.txErr
	}
	return &chain.TxResponse{TxHash: hash, Height: "12", Code: f.result.Code}, nil
}

type recorder struct {
	ops []string
}

func (r *recorder) Record(op string, _ time.Duration) {
	r.ops = append(r.ops, op)
}

func buildSwap(sender, amount string) (chain.ExecuteMsg, error) {
	return chain.ExecuteMsg{Sender: sender, Contract: "token", Msg: []byte(`{"amount":"` + amount + `"}`)}, nil
}

func newTestPipeline(store ConvictionStore, c Chain, rec Recorder) (*Pipeline, *[]time.Duration) {
	p := NewPipeline(NewGate(store), c, buildSwap, PipelineConfig{
		Sender: "secret1wallet",
		Amount: "400000",
		Fee:    chain.Fee{GasLimit: 3_500_000, GasPrice: 0.1, Denom: "uscrt"},
	}, rec, nil)
	var slept []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return p, &slept
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	g := NewGate(newMemConviction())

	convinced, err := g.IsConvinced(ctx, "new")
	require.NoError(t, err)
	assert.False(t, convinced)

	require.NoError(t, g.MarkConvinced(ctx, "u"))
	require.NoError(t, g.MarkConvinced(ctx, "u"))
	convinced, err = g.IsConvinced(ctx, "u")
	require.NoError(t, err)
	assert.True(t, convinced)
}

func TestExecuteRejectedWithoutBroadcast(t *testing.T) {
	c := &fakeChain{}
	p, slept := newTestPipeline(newMemConviction(), c, nil)

	res := p.Execute(context.Background(), "u")
	assert.Equal(t, KindRejected, res.Kind)
	assert.Equal(t, "Trading is not yet enabled. Convince me first!", res.String())
	assert.Zero(t, c.broadcasts)
	assert.Empty(t, *slept)
}

func TestExecuteSuccess(t *testing.T) {
	store := newMemConviction()
	store.convinced["u"] = true
	c := &fakeChain{result: chain.BroadcastResult{TxHash: "H", Code: 0, RawLog: "ok"}}
	rec := &recorder{}
	p, slept := newTestPipeline(store, c, rec)

	res := p.Execute(context.Background(), "u")
	require.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, "H", res.Hash)
	assert.Equal(t, ConfirmationConfirmed, res.Confirmation)
	assert.Contains(t, res.String(), "Transaction executed successfully!\nHash: H\nRaw Log: ok\nTxInfo: {")
	assert.Contains(t, res.TxInfo, `"height":"12"`)

	assert.Equal(t, 1, c.broadcasts)
	assert.Equal(t, []string{"H"}, c.lookups)
	assert.Equal(t, []time.Duration{DefaultConfirmDelay}, *slept)
	assert.Equal(t, uint64(3_500_000), c.lastFee.GasLimit)
	require.Len(t, c.lastMsgs, 1)
	assert.Equal(t, "secret1wallet", c.lastMsgs[0].Sender)
	assert.JSONEq(t, `{"amount":"400000"}`, string(c.lastMsgs[0].Msg))
	assert.Equal(t, []string{"broadcast", "trade"}, rec.ops)
}

func TestExecuteFailureCode(t *testing.T) {
	store := newMemConviction()
	store.convinced["u"] = true
	c := &fakeChain{result: chain.BroadcastResult{TxHash: "H2", Code: 5, RawLog: "insufficient funds"}}
	p, _ := newTestPipeline(store, c, nil)

	res := p.Execute(context.Background(), "u")
	require.Equal(t, KindFailure, res.Kind)
	assert.Equal(t, uint32(5), res.Code)
	assert.Equal(t, "Transaction failed with code 5.\nHash: H2\nRaw Log: insufficient funds", res.String())
}

func TestExecuteConfirmationUnknown(t *testing.T) {
	store := newMemConviction()
	store.convinced["u"] = true
	c := &fakeChain{
		result: chain.BroadcastResult{TxHash: "H", Code: 0, RawLog: "ok"},
		txErr:  chain.ErrTxNotFound,
	}
	p, _ := newTestPipeline(store, c, nil)

	res := p.Execute(context.Background(), "u")
	require.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, ConfirmationUnknown, res.Confirmation)
	assert.Len(t, c.lookups, 1)
	assert.Contains(t, res.String(), "TxInfo: Not available yet")
}

func TestExecuteBroadcastError(t *testing.T) {
	store := newMemConviction()
	store.convinced["u"] = true
	c := &fakeChain{err: errors.New("account sequence mismatch")}
	p, slept := newTestPipeline(store, c, nil)

	res := p.Execute(context.Background(), "u")
	require.Equal(t, KindError, res.Kind)
	assert.Equal(t, "Error executing transaction: account sequence mismatch", res.String())
	assert.Equal(t, 1, c.broadcasts)
	assert.Empty(t, c.lookups)
	assert.Empty(t, *slept)
}

func TestExecuteGateError(t *testing.T) {
	store := newMemConviction()
	store.err = errors.New("database is locked")
	c := &fakeChain{}
	p, _ := newTestPipeline(store, c, nil)

	res := p.Execute(context.Background(), "u")
	assert.Equal(t, KindError, res.Kind)
	assert.Zero(t, c.broadcasts)
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
