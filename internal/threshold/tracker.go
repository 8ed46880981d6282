// Package threshold maintains per-direction profit histograms and derives
// adaptive target-profit thresholds from the empirically observed spread
// distribution.
package threshold

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/avelsh/crossarb/internal/domain"
)

// Config controls bucketing, checkpointing and window rollover.
type Config struct {
	// Precision is the number of decimal places a raw profit is rounded to
	// before bucketing.
	Precision int
	// Window is the accumulation window; on expiry the histogram is archived
	// and reset, and targets are recomputed from the closing window.
	Window time.Duration
	// CheckpointEvery bounds how often the histogram is checkpointed to the
	// store while the window is open.
	CheckpointEvery time.Duration
	// BalanceFloor is the sample count past which the frequency-balance rule
	// starts trimming the more frequent side.
	BalanceFloor int
}

func (c Config) withDefaults() Config {
	if c.Precision <= 0 {
		c.Precision = 4
	}
	if c.Window <= 0 {
		c.Window = 24 * time.Hour
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = time.Hour
	}
	if c.BalanceFloor <= 0 {
		c.BalanceFloor = 100
	}
	return c
}

type bucket struct {
	Profit float64
	Count  int
}

// Tracker accumulates rounded raw-profit observations per directed key and
// derives, for every opposing key pair, the minimal thresholds whose combined
// breakeven stays non-negative. Safe for concurrent use.
type Tracker struct {
	cfg    Config
	fees   map[string]float64 // venue -> taker fee
	store  domain.HistogramStore
	logger *slog.Logger
	now    func() time.Time

	mu             sync.Mutex
	ranges         map[Key]map[float64]int
	targets        map[Key]float64
	startedAt      time.Time
	lastCheckpoint time.Time
}

// New creates a Tracker. fees maps venue name to taker fee; store may be nil
// to run without persistence.
func New(fees map[string]float64, cfg Config, store domain.HistogramStore, logger *slog.Logger) *Tracker {
	t := &Tracker{
		cfg:     cfg.withDefaults(),
		fees:    fees,
		store:   store,
		logger:  logger.With(slog.String("component", "threshold_tracker")),
		now:     func() time.Time { return time.Now().UTC() },
		ranges:  make(map[Key]map[float64]int),
		targets: make(map[Key]float64),
	}
	t.startedAt = t.now()
	t.lastCheckpoint = t.startedAt
	return t
}

// snapshot is the JSON checkpoint format.
type snapshot struct {
	StartedAt time.Time                 `json:"started_at"`
	Ranges    map[string]map[string]int `json:"ranges"`
}

// Observe records one raw-profit observation for the directed key, and drives
// checkpointing and window rollover as a side effect.
func (t *Tracker) Observe(ctx context.Context, key Key, rawProfit float64) {
	scale := math.Pow10(t.cfg.Precision)
	rounded := math.Round(rawProfit*scale) / scale

	t.mu.Lock()
	defer t.mu.Unlock()

	buckets := t.ranges[key]
	if buckets == nil {
		buckets = make(map[float64]int)
		t.ranges[key] = buckets
	}
	buckets[rounded]++

	now := t.now()
	if now.Sub(t.lastCheckpoint) >= t.cfg.CheckpointEvery {
		t.checkpointLocked(ctx)
		t.lastCheckpoint = now
	}
	if now.Sub(t.startedAt) >= t.cfg.Window {
		t.rolloverLocked(ctx, now)
	}
}

// Target returns the learned threshold for a directed key, if one was derived
// from the last closed window.
func (t *Tracker) Target(key Key) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.targets[key]
	return v, ok
}

// TargetProfits recomputes and returns the thresholds for every opposing key
// pair present in the current histogram.
func (t *Tracker) TargetProfits() map[Key]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.targets = t.deriveLocked()
	out := make(map[Key]float64, len(t.targets))
	for k, v := range t.targets {
		out[k] = v
	}
	return out
}

// deriveLocked walks every opposing histogram pair from the most profitable
// bucket downward while the running bucket sum minus the combined round-trip
// fees stays non-negative, then applies the frequency-balance rule: once a
// side has more than BalanceFloor samples it may not hold more than twice the
// other side's count, and is trimmed back to a less generous bucket until
// balanced. The final threshold per key is chosen bucket minus combined fees.
func (t *Tracker) deriveLocked() map[Key]float64 {
	out := make(map[Key]float64)
	done := make(map[Key]bool)

	for key := range t.ranges {
		if done[key] {
			continue
		}
		rev := key.Reversed()
		if _, ok := t.ranges[rev]; !ok {
			continue
		}
		done[key] = true
		done[rev] = true

		one := sortedBuckets(t.ranges[key])
		two := sortedBuckets(t.ranges[rev])
		fees := t.fees[key.BuyVenue] + t.fees[key.SellVenue]

		i := 0
		var p1, p2 float64
		var freq1, freq2, accepted int
		for i < len(one) && i < len(two) && one[i].Profit+two[i].Profit-2*fees >= 0 {
			p1, p2 = one[i].Profit, two[i].Profit
			freq1 += one[i].Count
			freq2 += two[i].Count
			accepted++
			i++
		}
		if accepted == 0 {
			continue
		}

		j1, j2 := accepted-1, accepted-1
		for freq1 > t.cfg.BalanceFloor && freq1 > 2*freq2 && j1 > 0 {
			freq1 -= one[j1].Count
			j1--
			p1 = one[j1].Profit
		}
		for freq2 > t.cfg.BalanceFloor && freq2 > 2*freq1 && j2 > 0 {
			freq2 -= two[j2].Count
			j2--
			p2 = two[j2].Profit
		}

		out[key] = p1 - fees
		out[rev] = p2 - fees
	}
	return out
}

func sortedBuckets(m map[float64]int) []bucket {
	out := make([]bucket, 0, len(m))
	for p, c := range m {
		out = append(out, bucket{Profit: p, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Profit > out[j].Profit })
	return out
}

// Restore loads the last checkpoint from the store, replacing the current
// histogram. Missing checkpoints are not an error.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	data, err := t.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ranges = make(map[Key]map[float64]int, len(snap.Ranges))
	for ks, buckets := range snap.Ranges {
		key, err := ParseKey(ks)
		if err != nil {
			t.logger.Warn("skipping malformed checkpoint key", slog.String("key", ks))
			continue
		}
		m := make(map[float64]int, len(buckets))
		for ps, c := range buckets {
			p, err := strconv.ParseFloat(ps, 64)
			if err != nil {
				continue
			}
			m[p] = c
		}
		t.ranges[key] = m
	}
	if !snap.StartedAt.IsZero() {
		t.startedAt = snap.StartedAt
	}
	t.targets = t.deriveLocked()
	return nil
}

// Checkpoint persists the current histogram to the store.
func (t *Tracker) Checkpoint(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checkpointLocked(ctx)
}

func (t *Tracker) checkpointLocked(ctx context.Context) {
	if t.store == nil {
		return
	}
	data, err := t.marshalLocked()
	if err != nil {
		t.logger.Warn("histogram marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := t.store.Save(ctx, data); err != nil {
		t.logger.Warn("histogram checkpoint failed", slog.String("error", err.Error()))
	}
}

// rolloverLocked archives the closing window, recomputes targets from it and
// starts a fresh histogram.
func (t *Tracker) rolloverLocked(ctx context.Context, now time.Time) {
	t.targets = t.deriveLocked()
	if t.store != nil {
		if data, err := t.marshalLocked(); err == nil {
			date := now.Format("2006-01-02")
			if err := t.store.Archive(ctx, date, data); err != nil {
				t.logger.Warn("histogram archive failed",
					slog.String("date", date),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	t.logger.Info("threshold window rolled over",
		slog.Int("directed_keys", len(t.ranges)),
		slog.Int("targets", len(t.targets)),
		slog.Duration("window", now.Sub(t.startedAt)),
	)
	t.ranges = make(map[Key]map[float64]int)
	t.startedAt = now
}

func (t *Tracker) marshalLocked() ([]byte, error) {
	snap := snapshot{
		StartedAt: t.startedAt,
		Ranges:    make(map[string]map[string]int, len(t.ranges)),
	}
	for key, buckets := range t.ranges {
		m := make(map[string]int, len(buckets))
		for p, c := range buckets {
			m[strconv.FormatFloat(p, 'f', -1, 64)] = c
		}
		snap.Ranges[key.String()] = m
	}
	return json.Marshal(snap)
}
