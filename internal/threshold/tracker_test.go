package threshold

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelsh/crossarb/internal/domain"
)

var testFees = map[string]float64{"A": 0.001, "B": 0.001}

func testKey() Key {
	return Key{BuyVenue: "A", SellVenue: "B", Coin: "BTC"}
}

func observeN(t *Tracker, key Key, profit float64, n int) {
	for i := 0; i < n; i++ {
		t.Observe(context.Background(), key, profit)
	}
}

func TestTargetProfitsPairwiseWalk(t *testing.T) {
	tr := New(testFees, Config{}, nil, slog.Default())
	key := testKey()
	rev := key.Reversed()

	observeN(tr, key, 0.0100, 5)
	observeN(tr, key, 0.0050, 5)
	observeN(tr, rev, 0.0080, 5)
	observeN(tr, rev, 0.0010, 5)

	targets := tr.TargetProfits()
	require.Len(t, targets, 2)

	// Both bucket levels survive: 0.005+0.001 - 2*0.002 >= 0. Thresholds are
	// the chosen bucket minus the combined fees.
	assert.InDelta(t, 0.0030, targets[key], 1e-9)
	assert.InDelta(t, -0.0010, targets[rev], 1e-9)

	got, ok := tr.Target(key)
	require.True(t, ok)
	assert.InDelta(t, 0.0030, got, 1e-9)
}

func TestTargetProfitsWalkStopsAtBreakeven(t *testing.T) {
	tr := New(testFees, Config{}, nil, slog.Default())
	key := testKey()
	rev := key.Reversed()

	observeN(tr, key, 0.0100, 3)
	observeN(tr, key, 0.0005, 3) // 0.0005 + 0.0010 - 0.004 < 0, walk stops
	observeN(tr, rev, 0.0080, 3)
	observeN(tr, rev, 0.0010, 3)

	targets := tr.TargetProfits()
	assert.InDelta(t, 0.0080, targets[key], 1e-9)
	assert.InDelta(t, 0.0060, targets[rev], 1e-9)
}

func TestTargetProfitsFrequencyTrim(t *testing.T) {
	tr := New(testFees, Config{BalanceFloor: 10}, nil, slog.Default())
	key := testKey()
	rev := key.Reversed()

	observeN(tr, key, 0.0100, 50)
	observeN(tr, key, 0.0050, 50)
	observeN(tr, rev, 0.0080, 5)
	observeN(tr, rev, 0.0010, 5)

	targets := tr.TargetProfits()
	// The frequent side (100 samples vs 10) is trimmed back to its top
	// bucket before the threshold is taken.
	assert.InDelta(t, 0.0080, targets[key], 1e-9)
	assert.InDelta(t, -0.0010, targets[rev], 1e-9)
}

func TestTargetProfitsUnpairedKeySkipped(t *testing.T) {
	tr := New(testFees, Config{}, nil, slog.Default())
	observeN(tr, testKey(), 0.01, 10)

	assert.Empty(t, tr.TargetProfits())
}

func TestObserveRoundsToPrecision(t *testing.T) {
	tr := New(testFees, Config{Precision: 4}, nil, slog.Default())
	key := testKey()
	rev := key.Reversed()

	// All three collapse into the 0.0100 bucket.
	tr.Observe(context.Background(), key, 0.010004)
	tr.Observe(context.Background(), key, 0.0099996)
	tr.Observe(context.Background(), key, 0.01)
	observeN(tr, rev, 0.0080, 1)

	targets := tr.TargetProfits()
	assert.InDelta(t, 0.0080, targets[key], 1e-9)
}

func TestCheckpointRestoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tr := New(testFees, Config{}, store, slog.Default())
	key := testKey()
	rev := key.Reversed()
	observeN(tr, key, 0.0100, 5)
	observeN(tr, key, 0.0050, 5)
	observeN(tr, rev, 0.0080, 5)
	observeN(tr, rev, 0.0010, 5)
	tr.Checkpoint(ctx)

	restored := New(testFees, Config{}, store, slog.Default())
	require.NoError(t, restored.Restore(ctx))

	assert.Equal(t, tr.TargetProfits(), restored.TargetProfits())
}

func TestRestoreEmptyStoreIsNotAnError(t *testing.T) {
	tr := New(testFees, Config{}, NewMemoryStore(), slog.Default())
	require.NoError(t, tr.Restore(context.Background()))
}

func TestWindowRollover(t *testing.T) {
	store := NewMemoryStore()
	tr := New(testFees, Config{Window: time.Hour}, store, slog.Default())

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	tr.startedAt = now
	tr.lastCheckpoint = now

	key := testKey()
	rev := key.Reversed()
	observeN(tr, key, 0.0100, 5)
	observeN(tr, rev, 0.0080, 5)

	// Cross the window boundary: the next observation archives and resets.
	now = now.Add(2 * time.Hour)
	tr.Observe(context.Background(), key, 0.0100)

	_, ok := store.Archived("2026-03-01")
	assert.True(t, ok, "rolled-over window should be archived")

	// Targets derived from the closed window survive the reset.
	got, ok := tr.Target(key)
	require.True(t, ok)
	assert.InDelta(t, 0.0080, got, 1e-9)

	tr.mu.Lock()
	fresh := len(tr.ranges)
	tr.mu.Unlock()
	assert.Equal(t, 0, fresh, "histogram should restart empty after the rollover")
}

func TestKeyStringRoundTrip(t *testing.T) {
	key := testKey()
	parsed, err := ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParseKey("not-a-key")
	assert.Error(t, err)
}

func TestMemoryStoreLoadEmpty(t *testing.T) {
	_, err := NewMemoryStore().Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
