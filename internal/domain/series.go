package domain

import (
	"fmt"
	"math"
)

// MinSeriesLen is the smallest series the chart renderer accepts.
const MinSeriesLen = 2

// PriceSeries is the lookback window of prices, oldest first, with the
// current price appended as the final sample.
type PriceSeries []float64

// MarketSnapshot holds the point-in-time scalars from the markets endpoint
type MarketSnapshot struct {
	CoinID       string
	Symbol       string
	Name         string
	ImageURL     string
	CurrentPrice float64
	AllTimeHigh  float64
	Volume       float64
}

// IsAllTimeHigh returns true only when the current price strictly exceeds the ATH
func (m MarketSnapshot) IsAllTimeHigh() bool {
	return m.CurrentPrice > m.AllTimeHigh
}

// Last returns the most recent sample, or 0 for an empty series
func (s PriceSeries) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// First returns the oldest sample, or 0 for an empty series
func (s PriceSeries) First() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// Validate checks the series is long enough to plot and holds only finite values.
func (s PriceSeries) Validate() error {
	if len(s) < MinSeriesLen {
		return fmt.Errorf("%w: got %d samples, need %d", ErrSeriesTooShort, len(s), MinSeriesLen)
	}
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite sample at index %d", i)
		}
	}
	return nil
}

// Mean returns the arithmetic mean of the samples
func (s PriceSeries) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}

// MeanCentered returns a copy of the series with its mean subtracted from
// every sample, so the sparkline is drawn around zero.
func (s PriceSeries) MeanCentered() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	mean := s.Mean()
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v - mean
	}
	return out, nil
}

// DisplayState is carried across loop iterations to suppress redundant redraws
type DisplayState struct {
	lastShown *float64
}

// ShouldRedraw reports whether price differs from the last shown one. The
// first call always returns true.
func (d *DisplayState) ShouldRedraw(price float64) bool {
	return d.lastShown == nil || *d.lastShown != price
}

// MarkShown records price as currently on the display
func (d *DisplayState) MarkShown(price float64) {
	p := price
	d.lastShown = &p
}

// LastShown returns the last shown price and whether one exists
func (d *DisplayState) LastShown() (float64, bool) {
	if d.lastShown == nil {
		return 0, false
	}
	return *d.lastShown, true
}
