package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crypto_ticker/internal/domain"
	"crypto_ticker/internal/infra"
)

// ExitInterrupted is returned by Run once the loop is stopped by a signal.
const ExitInterrupted = 1

// Config holds loop timing.
type Config struct {
	FetchInterval time.Duration // Minimum gap between cycles, measured from cycle completion
	TickInterval  time.Duration // Sleep between due checks
}

// DefaultConfig returns the 60s/5s timing of the ticker.
func DefaultConfig() Config {
	return Config{
		FetchInterval: 60 * time.Second,
		TickInterval:  5 * time.Second,
	}
}

// Loop is the single-threaded poll-render-display loop. Every phase of a
// cycle runs on the caller's goroutine; the only suspension point is the
// sleep between ticks.
type Loop struct {
	cfg      Config
	fetcher  domain.Fetcher
	renderer domain.ChartRenderer
	composer domain.Composer
	sink     domain.DisplaySink
	metrics  *infra.Metrics
	logger   *slog.Logger

	state       domain.DisplayState
	lastFetch   time.Time
	fetchedOnce bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewLoop wires the components together. The sink is owned by the loop and
// closed when Run returns. Zero intervals take the DefaultConfig values.
func NewLoop(cfg Config, f domain.Fetcher, r domain.ChartRenderer, c domain.Composer, s domain.DisplaySink, m *infra.Metrics, logger *slog.Logger) *Loop {
	def := DefaultConfig()
	if cfg.FetchInterval <= 0 {
		cfg.FetchInterval = def.FetchInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = &infra.Metrics{}
	}
	return &Loop{
		cfg:      cfg,
		fetcher:  f,
		renderer: r,
		composer: c,
		sink:     s,
		metrics:  m,
		logger:   logger.With("module", "loop"),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Run polls until ctx is cancelled, then releases the display and returns
// ExitInterrupted.
func (l *Loop) Run(ctx context.Context) int {
	l.logger.InfoContext(ctx, "Poll loop started",
		slog.Duration("fetch_interval", l.cfg.FetchInterval),
		slog.Duration("tick_interval", l.cfg.TickInterval),
	)

	defer l.shutdown()

	for {
		if l.due() {
			if err := l.Cycle(ctx); err != nil {
				l.logCycleError(ctx, err)
			}
			// Failed cycles also wait a full interval
			l.lastFetch = l.now()
			l.fetchedOnce = true
		}

		if !l.sleep(ctx, l.cfg.TickInterval) {
			return ExitInterrupted
		}
	}
}

func (l *Loop) due() bool {
	return !l.fetchedOnce || l.now().Sub(l.lastFetch) > l.cfg.FetchInterval
}

// Cycle runs one fetch, render, compose and display pass. The display is
// skipped when the price equals the one already shown.
func (l *Loop) Cycle(ctx context.Context) error {
	start := l.now()
	defer func() {
		l.metrics.RecordCycle(l.now().Sub(start))
	}()

	series, snap, err := l.fetcher.Fetch(ctx)
	if err != nil {
		l.metrics.RecordFetchFailure()
		return err
	}

	price := series.Last()
	if !l.state.ShouldRedraw(price) {
		l.metrics.RecordSuppressed()
		l.logger.DebugContext(ctx, "Price unchanged, display left as is", slog.Float64("price", price))
		return nil
	}

	isATH := snap.IsAllTimeHigh()

	chart, err := l.renderer.Render(series)
	if err != nil {
		l.metrics.RecordRenderFailure()
		return err
	}

	frame, err := l.composer.Compose(series, snap, isATH, chart, l.now())
	if err != nil {
		l.metrics.RecordRenderFailure()
		return err
	}

	if err := l.sink.Show(frame); err != nil {
		l.metrics.RecordDisplayError()
		return err
	}

	l.state.MarkShown(price)
	l.metrics.RecordRedraw()
	return nil
}

func (l *Loop) logCycleError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		l.logger.InfoContext(ctx, "Cycle interrupted")
	case domain.IsFetchFailure(err):
		l.logger.WarnContext(ctx, "Fetch failed, skipping cycle", slog.Any("error", err))
	default:
		l.logger.ErrorContext(ctx, "Cycle failed", slog.Any("error", err))
	}
}

func (l *Loop) shutdown() {
	if err := l.sink.Close(); err != nil {
		l.logger.Error("Display cleanup failed", slog.Any("error", err))
	}

	snap := l.metrics.Snapshot()
	attrs := []any{
		slog.Uint64("cycles", snap.CyclesRun),
		slog.Uint64("redraws", snap.Redraws),
		slog.Uint64("suppressed", snap.SuppressedRedraws),
		slog.Uint64("fetch_failures", snap.FetchFailures),
		slog.Uint64("render_failures", snap.RenderFailures),
		slog.Uint64("display_errors", snap.DisplayErrors),
		slog.Duration("avg_cycle", snap.AvgCycle),
	}
	if price, ok := l.state.LastShown(); ok {
		attrs = append(attrs, slog.Float64("last_price", price))
	}
	l.logger.Info("👋 Poll loop stopped", attrs...)
}

// sleepCtx waits for d and reports false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
