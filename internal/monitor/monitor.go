// internal/monitor/monitor.go
package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-yield/internal/logger"
	"github.com/rovshanmuradov/lp-yield/internal/types"
	"github.com/rovshanmuradov/lp-yield/internal/yield"
)

// State of the monitor loop.
type State int32

const (
	StateIdle State = iota
	StateRunningCycle
)

func (s State) String() string {
	if s == StateRunningCycle {
		return "running-cycle"
	}
	return "idle"
}

// SnapshotFetcher retrieves the pair data for one cycle. It must not fail:
// problems are reported inside the readings.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) types.PairSnapshot
}

// Config for YieldMonitor
type Config struct {
	PairName string
	Interval time.Duration // pause between the end of one cycle and the start of the next
	Fetcher  SnapshotFetcher
	Calc     *yield.Calculator
	Reporter Reporter
	Logger   *zap.Logger
}

// YieldMonitor periodically fetches pair data, computes yields and reports them.
// Cycles run strictly one after another.
type YieldMonitor struct {
	pairName string
	interval time.Duration
	fetcher  SnapshotFetcher
	calc     *yield.Calculator
	reporter Reporter
	logger   *zap.Logger

	state  atomic.Int32
	cycles atomic.Uint64
}

// NewYieldMonitor creates a new yield monitor
func NewYieldMonitor(cfg Config) *YieldMonitor {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &YieldMonitor{
		pairName: cfg.PairName,
		interval: cfg.Interval,
		fetcher:  cfg.Fetcher,
		calc:     cfg.Calc,
		reporter: cfg.Reporter,
		logger:   l.Named("monitor"),
	}
}

// Run executes a cycle immediately and then one cycle per interval until ctx is done.
// The wait starts after a cycle has finished, so a slow cycle delays the next one
// instead of overlapping with it.
func (m *YieldMonitor) Run(ctx context.Context) error {
	m.logger.Info("Starting yield monitor",
		zap.String("pair", m.pairName),
		zap.Duration("interval", m.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Yield monitor stopped", zap.Uint64("cycles", m.cycles.Load()))
			return nil
		case <-timer.C:
			m.RunOnce(ctx)
			timer.Reset(m.interval)
		}
	}
}

// RunOnce performs a single fetch → compute → report cycle.
func (m *YieldMonitor) RunOnce(ctx context.Context) types.CycleReport {
	m.state.Store(int32(StateRunningCycle))
	defer m.state.Store(int32(StateIdle))

	cycleLogger, cycleID := logger.WithCycle(m.logger)
	start := time.Now()

	snapshot := m.fetcher.FetchSnapshot(ctx)
	if ctx.Err() != nil {
		cycleLogger.Debug("Cycle interrupted", zap.Error(ctx.Err()))
		return types.CycleReport{CycleID: cycleID, Pair: m.pairName, Time: start, Snapshot: snapshot}
	}

	if failed := snapshot.Failed(); len(failed) > 0 {
		cycleLogger.Warn("Some readings failed, using 0", zap.Strings("failed", failed))
	}

	report := types.CycleReport{
		CycleID:  cycleID,
		Pair:     m.pairName,
		Time:     start,
		Snapshot: snapshot,
		Yield:    m.calc.Calculate(snapshot),
	}

	if err := m.reporter.Report(report); err != nil {
		cycleLogger.Error("Failed to write report", zap.Error(err))
	}

	n := m.cycles.Add(1)
	cycleLogger.Debug("Cycle completed",
		zap.Uint64("cycle", n),
		zap.Duration("duration", time.Since(start)))

	return report
}

// State returns the current loop state.
func (m *YieldMonitor) State() State {
	return State(m.state.Load())
}

// Cycles returns the number of completed cycles.
func (m *YieldMonitor) Cycles() uint64 {
	return m.cycles.Load()
}
