package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotEmpty(t *testing.T) {
	snap := NewCollector().Snapshot()
	assert.Nil(t, snap.Turn)
	assert.Nil(t, snap.Trade)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestRecord(t *testing.T) {
	c := NewCollector()
	c.Record(OpTurn, 10*time.Millisecond)
	c.Record(OpTurn, 30*time.Millisecond)
	c.RecordError(OpLedgerStore, 5*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Turn)
	assert.Equal(t, int64(2), snap.Turn.Count)
	assert.Equal(t, int64(40), snap.Turn.TotalTimeMs)
	assert.InDelta(t, 20.0, snap.Turn.AvgTimeMs, 0.001)
	assert.Equal(t, int64(10), snap.Turn.MinTimeMs)
	assert.Equal(t, int64(30), snap.Turn.MaxTimeMs)
	assert.Zero(t, snap.Turn.Errors)

	require.NotNil(t, snap.LedgerStore)
	assert.Equal(t, int64(1), snap.LedgerStore.Errors)
}

func TestRecordConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(OpBroadcast, time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Snapshot().Broadcast.Count)
}
