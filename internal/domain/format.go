package domain

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	// groupingThreshold is the price above which the integer format is used
	groupingThreshold = 1000
	significantDigits = 5
	timestampLayout   = "15:04 Mon 02 Jan 2006"
)

var hundred = decimal.NewFromInt(100)

// FormatPrice renders a price for the display.
// Above 1000 the integer part is printed with thousands separators
// (truncated, no decimals); otherwise 5 significant digits in %g style.
func FormatPrice(price float64) string {
	if price > groupingThreshold {
		return humanize.Comma(int64(price))
	}
	return strconv.FormatFloat(price, 'g', significantDigits, 64)
}

// PercentChange calculates 100 * (last - first) / last over the series
func PercentChange(series PriceSeries) (decimal.Decimal, error) {
	if len(series) < MinSeriesLen {
		return decimal.Zero, ErrSeriesTooShort
	}
	last := decimal.NewFromFloat(series.Last())
	if last.IsZero() {
		return decimal.Zero, nil
	}
	first := decimal.NewFromFloat(series.First())
	return last.Sub(first).Div(last).Mul(hundred), nil
}

// FormatChange renders a percent change rounded to 2 decimals with an explicit sign
func FormatChange(pct decimal.Decimal) string {
	rounded := pct.Round(2)
	s := rounded.StringFixed(2) + "%"
	if rounded.Sign() >= 0 {
		return "+" + s
	}
	return s
}

// FormatChangeLabel renders the "Nday : +X.XX%" label
func FormatChangeLabel(days int, pct decimal.Decimal) string {
	return strconv.Itoa(days) + "day : " + FormatChange(pct)
}

// FormatTimestamp renders t as "HH:MM Day DD Mon YYYY"
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// ConsoleLine is the per-cycle console output for a price
func ConsoleLine(priceStr string, isATH bool) string {
	if isATH {
		return priceStr + " (ATH!)"
	}
	return priceStr
}
