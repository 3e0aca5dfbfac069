package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"testing"
	"time"

	"crypto_ticker/internal/domain"
	"crypto_ticker/internal/infra"
)

type fetchResult struct {
	series domain.PriceSeries
	snap   domain.MarketSnapshot
	err    error
}

// fakeFetcher replays results; the last one repeats forever.
type fakeFetcher struct {
	results []fetchResult
	calls   int
	onFetch func()
}

func (f *fakeFetcher) Fetch(context.Context) (domain.PriceSeries, domain.MarketSnapshot, error) {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	if f.onFetch != nil {
		f.onFetch()
	}
	r := f.results[i]
	return r.series, r.snap, r.err
}

type fakeRenderer struct{ calls int }

func (r *fakeRenderer) Render(s domain.PriceSeries) (image.Image, error) {
	r.calls++
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return image.NewGray(image.Rect(0, 0, 170, 51)), nil
}

type fakeComposer struct {
	calls int
	aths  []bool
}

func (c *fakeComposer) Compose(_ domain.PriceSeries, _ domain.MarketSnapshot, isATH bool, _ image.Image, _ time.Time) (*image.Gray, error) {
	c.calls++
	c.aths = append(c.aths, isATH)
	return image.NewGray(image.Rect(0, 0, 250, 122)), nil
}

type fakeSink struct {
	shown  int
	closed int
	err    error
}

func (s *fakeSink) Show(image.Image) error {
	if s.err != nil {
		return s.err
	}
	s.shown++
	return nil
}

func (s *fakeSink) Close() error { s.closed++; return nil }

type harness struct {
	loop     *Loop
	fetcher  *fakeFetcher
	renderer *fakeRenderer
	composer *fakeComposer
	sink     *fakeSink
	metrics  *infra.Metrics
	clock    time.Time
}

func newHarness(results ...fetchResult) *harness {
	h := &harness{
		fetcher:  &fakeFetcher{results: results},
		renderer: &fakeRenderer{},
		composer: &fakeComposer{},
		sink:     &fakeSink{},
		metrics:  &infra.Metrics{},
		clock:    time.Unix(1_600_000_000, 0),
	}
	h.loop = NewLoop(DefaultConfig(), h.fetcher, h.renderer, h.composer, h.sink, h.metrics, nil)
	h.loop.now = func() time.Time { return h.clock }
	return h
}

// runTicks runs the loop until it has slept n times, then interrupts it.
func (h *harness) runTicks(n int) int {
	slept := 0
	h.loop.sleep = func(_ context.Context, d time.Duration) bool {
		slept++
		if slept > n {
			return false
		}
		h.clock = h.clock.Add(d)
		return true
	}
	return h.loop.Run(context.Background())
}

func ok(series ...float64) fetchResult {
	s := domain.PriceSeries(series)
	return fetchResult{series: s, snap: domain.MarketSnapshot{CurrentPrice: s.Last(), AllTimeHigh: 1e9}}
}

func TestLoop_Gating(t *testing.T) {
	h := newHarness(ok(1, 2), ok(1, 3), ok(1, 4))

	// Checks at t=0,5,...,130: cycles at 0, 65 and 130
	code := h.runTicks(26)

	if code != ExitInterrupted {
		t.Errorf("exit code = %d, want %d", code, ExitInterrupted)
	}
	if h.fetcher.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", h.fetcher.calls)
	}
	if h.sink.shown != 3 {
		t.Errorf("frames shown = %d, want 3", h.sink.shown)
	}
	if h.sink.closed != 1 {
		t.Errorf("sink closed %d times, want 1", h.sink.closed)
	}
}

func TestLoop_IntervalMeasuredFromCompletion(t *testing.T) {
	h := newHarness(ok(1, 2), ok(1, 3))
	start := h.clock
	var cycleStarts []time.Duration
	// Each fetch takes 10s
	h.fetcher.onFetch = func() {
		cycleStarts = append(cycleStarts, h.clock.Sub(start))
		h.clock = h.clock.Add(10 * time.Second)
	}

	h.runTicks(13) // up to t=10+65

	if len(cycleStarts) != 2 {
		t.Fatalf("cycles = %d, want 2", len(cycleStarts))
	}
	if cycleStarts[1] != 75*time.Second {
		t.Errorf("second cycle started at %v, want 75s", cycleStarts[1])
	}
}

func TestLoop_SuppressesUnchangedPrice(t *testing.T) {
	h := newHarness(ok(100, 107), ok(101, 107), ok(100, 108))

	h.runTicks(26)

	if h.fetcher.calls != 3 {
		t.Fatalf("fetch calls = %d, want 3", h.fetcher.calls)
	}
	if h.sink.shown != 2 {
		t.Errorf("frames shown = %d, want 2 (second cycle suppressed)", h.sink.shown)
	}
	if h.renderer.calls != 2 {
		t.Errorf("render calls = %d, want 2", h.renderer.calls)
	}
	if snap := h.metrics.Snapshot(); snap.SuppressedRedraws != 1 {
		t.Errorf("suppressed = %d, want 1", snap.SuppressedRedraws)
	}
}

func TestLoop_FetchFailureSkipsCycle(t *testing.T) {
	failure := fetchResult{err: domain.NewFetchError("market_chart", domain.ErrMissingPrices)}
	h := newHarness(failure, ok(1, 2))

	// Cycles at 0 (fails) and 65
	h.runTicks(13)

	if h.fetcher.calls != 2 {
		t.Fatalf("fetch calls = %d, want 2", h.fetcher.calls)
	}
	if h.renderer.calls != 1 || h.composer.calls != 1 || h.sink.shown != 1 {
		t.Errorf("failed cycle must not render or display: render=%d compose=%d shown=%d",
			h.renderer.calls, h.composer.calls, h.sink.shown)
	}
	if snap := h.metrics.Snapshot(); snap.FetchFailures != 1 || snap.CyclesRun != 2 {
		t.Errorf("unexpected metrics: %+v", snap)
	}
}

func TestLoop_Cycle(t *testing.T) {
	t.Run("ATH flag passed to composer", func(t *testing.T) {
		h := newHarness(fetchResult{
			series: domain.PriceSeries{100, 102, 98, 101, 99, 103, 105, 107},
			snap:   domain.MarketSnapshot{CurrentPrice: 107, AllTimeHigh: 106},
		})
		if err := h.loop.Cycle(context.Background()); err != nil {
			t.Fatalf("Cycle failed: %v", err)
		}
		if len(h.composer.aths) != 1 || !h.composer.aths[0] {
			t.Errorf("expected ATH frame, got %v", h.composer.aths)
		}
	})

	t.Run("fetch error returned", func(t *testing.T) {
		h := newHarness(fetchResult{err: domain.NewFetchError("markets", errors.New("boom"))})
		if err := h.loop.Cycle(context.Background()); !errors.Is(err, domain.ErrFetchFailed) {
			t.Errorf("expected fetch failure, got %v", err)
		}
	})

	t.Run("short series rejected by renderer", func(t *testing.T) {
		h := newHarness(ok(107))
		err := h.loop.Cycle(context.Background())
		if !errors.Is(err, domain.ErrSeriesTooShort) {
			t.Errorf("expected ErrSeriesTooShort, got %v", err)
		}
		if h.sink.shown != 0 {
			t.Error("nothing should be displayed")
		}
	})

	t.Run("display failure retried next cycle", func(t *testing.T) {
		h := newHarness(ok(1, 2))
		h.sink.err = errors.New("spi busy")
		if err := h.loop.Cycle(context.Background()); err == nil {
			t.Fatal("expected display error")
		}

		h.sink.err = nil
		if err := h.loop.Cycle(context.Background()); err != nil {
			t.Fatalf("Cycle failed: %v", err)
		}
		if h.sink.shown != 1 {
			t.Errorf("same price should be shown after a failed display, shown=%d", h.sink.shown)
		}
	})
}

func TestLoop_StopsOnCancel(t *testing.T) {
	h := newHarness(ok(1, 2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.loop.cfg.TickInterval = time.Hour
	code := h.loop.Run(ctx)

	if code != ExitInterrupted {
		t.Errorf("exit code = %d, want %d", code, ExitInterrupted)
	}
	if h.sink.closed != 1 {
		t.Error("sink must be closed on interrupt")
	}
}

func TestNewLoop_ZeroIntervalsUseDefaults(t *testing.T) {
	l := NewLoop(Config{}, &fakeFetcher{}, &fakeRenderer{}, &fakeComposer{}, &fakeSink{}, nil, nil)
	if l.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want %+v", l.cfg, DefaultConfig())
	}
}

func TestLoop_ShutdownSummary(t *testing.T) {
	h := newHarness(ok(1, 2))
	var logs bytes.Buffer
	h.loop.logger = slog.New(slog.NewTextHandler(&logs, nil))

	h.runTicks(1)

	out := logs.String()
	for _, want := range []string{"cycles=1", "render_failures=0", "display_errors=0", "last_price=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("shutdown log missing %q: %s", want, out)
		}
	}
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("sleep should complete")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Hour) {
		t.Error("sleep should stop on cancel")
	}
}
