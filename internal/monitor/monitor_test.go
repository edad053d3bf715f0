package monitor

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-yield/internal/types"
	"github.com/rovshanmuradov/lp-yield/internal/yield"
)

// stubFetcher returns a fixed snapshot and tracks concurrent calls.
type stubFetcher struct {
	snapshot types.PairSnapshot
	delay    time.Duration

	calls     atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *stubFetcher) FetchSnapshot(ctx context.Context) types.PairSnapshot {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxFlight.Load()
		if n <= cur || f.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(f.delay)
	return f.snapshot
}

// recordingReporter collects reports.
type recordingReporter struct {
	mu      sync.Mutex
	reports []types.CycleReport
	err     error
}

func (r *recordingReporter) Report(report types.CycleReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func cakeConstants() types.ProtocolConstants {
	return types.ProtocolConstants{
		FeeRate:               0.0017,
		TotalFarmMultiplier:   102.1,
		TotalEmissionPerDay:   72400,
		TargetFarmMultiplier:  40,
		CompoundingPeriodDays: 365,
	}
}

func goodSnapshot() types.PairSnapshot {
	return types.PairSnapshot{
		Price:         types.Reading{Value: 5},
		BaseVolume24h: types.Reading{Value: 1_000_000},
		Liquidity:     types.Reading{Value: 2_000_000},
	}
}

func newTestMonitor(t *testing.T, f SnapshotFetcher, r Reporter, interval time.Duration) *YieldMonitor {
	logger := zaptest.NewLogger(t)
	return NewYieldMonitor(Config{
		PairName: "CAKE-BNB",
		Interval: interval,
		Fetcher:  f,
		Calc:     yield.NewCalculator(cakeConstants(), logger),
		Reporter: r,
		Logger:   logger,
	})
}

func TestRunOnce(t *testing.T) {
	rep := &recordingReporter{}
	m := newTestMonitor(t, &stubFetcher{snapshot: goodSnapshot()}, rep, time.Second)

	report := m.RunOnce(context.Background())

	assert.Equal(t, "CAKE-BNB", report.Pair)
	assert.NotEmpty(t, report.CycleID)
	assert.InDelta(t, 0.00425, report.Yield.DailyLPYield, 1e-12)
	assert.Equal(t, 1, rep.count())
	assert.Equal(t, uint64(1), m.Cycles())
	assert.Equal(t, StateIdle, m.State())
}

func TestRunOnceFailedFetchDoesNotCrash(t *testing.T) {
	fetchErr := errors.New("dial tcp: connection refused")
	f := &stubFetcher{snapshot: types.PairSnapshot{
		Price:         types.Reading{Err: fetchErr},
		BaseVolume24h: types.Reading{Err: fetchErr},
		Liquidity:     types.Reading{Err: fetchErr},
	}}
	var buf bytes.Buffer
	m := newTestMonitor(t, f, NewTextReporter(&buf), time.Second)

	var report types.CycleReport
	require.NotPanics(t, func() { report = m.RunOnce(context.Background()) })

	assert.True(t, math.IsNaN(report.Yield.TotalCompoundedYield))
	assert.Contains(t, buf.String(), "n/a")
	assert.Contains(t, buf.String(), "fetch failed")
}

func TestRunOnceReporterErrorIsLogged(t *testing.T) {
	rep := &recordingReporter{err: errors.New("broken pipe")}
	m := newTestMonitor(t, &stubFetcher{snapshot: goodSnapshot()}, rep, time.Second)

	assert.NotPanics(t, func() { m.RunOnce(context.Background()) })
	assert.Equal(t, uint64(1), m.Cycles())
}

func TestRunStopsOnCancel(t *testing.T) {
	rep := &recordingReporter{}
	f := &stubFetcher{snapshot: goodSnapshot()}
	m := newTestMonitor(t, f, rep, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return rep.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunCyclesDoNotOverlap(t *testing.T) {
	rep := &recordingReporter{}
	// цикл дольше интервала
	f := &stubFetcher{snapshot: goodSnapshot(), delay: 20 * time.Millisecond}
	m := newTestMonitor(t, f, rep, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx))

	assert.Equal(t, int32(1), f.maxFlight.Load())
	assert.GreaterOrEqual(t, f.calls.Load(), int32(2))
}

func TestRunFirstCycleIsImmediate(t *testing.T) {
	rep := &recordingReporter{}
	m := newTestMonitor(t, &stubFetcher{snapshot: goodSnapshot()}, rep, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	require.Eventually(t, func() bool { return rep.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running-cycle", StateRunningCycle.String())
}
