package infra

import (
	"sync/atomic"
	"time"
)

// Metrics counts what the poll loop did.
// Uses atomic operations so it can be read while the loop runs.
type Metrics struct {
	// Counters
	cyclesRun         atomic.Uint64
	fetchFailures     atomic.Uint64
	renderFailures    atomic.Uint64
	redraws           atomic.Uint64
	suppressedRedraws atomic.Uint64
	displayErrors     atomic.Uint64

	// Cycle duration tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64
}

// RecordCycle records one completed cycle and how long it took.
func (m *Metrics) RecordCycle(d time.Duration) {
	m.cyclesRun.Add(1)
	m.latencySumNs.Add(d.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordFetchFailure records a skipped cycle due to a fetch fault.
func (m *Metrics) RecordFetchFailure() {
	m.fetchFailures.Add(1)
}

// RecordRenderFailure records a chart or compose failure.
func (m *Metrics) RecordRenderFailure() {
	m.renderFailures.Add(1)
}

// RecordRedraw records a frame pushed to the display sink.
func (m *Metrics) RecordRedraw() {
	m.redraws.Add(1)
}

// RecordSuppressed records a cycle whose price matched the one on screen.
func (m *Metrics) RecordSuppressed() {
	m.suppressedRedraws.Add(1)
}

// RecordDisplayError records a sink failure.
func (m *Metrics) RecordDisplayError() {
	m.displayErrors.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	CyclesRun         uint64
	FetchFailures     uint64
	RenderFailures    uint64
	Redraws           uint64
	SuppressedRedraws uint64
	DisplayErrors     uint64
	AvgCycle          time.Duration
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avg time.Duration
	count := m.latencyCount.Load()
	if count > 0 {
		avg = time.Duration(m.latencySumNs.Load() / int64(count))
	}

	return MetricsSnapshot{
		CyclesRun:         m.cyclesRun.Load(),
		FetchFailures:     m.fetchFailures.Load(),
		RenderFailures:    m.renderFailures.Load(),
		Redraws:           m.redraws.Load(),
		SuppressedRedraws: m.suppressedRedraws.Load(),
		DisplayErrors:     m.displayErrors.Load(),
		AvgCycle:          avg,
		Timestamp:         time.Now(),
	}
}
