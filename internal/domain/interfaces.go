package domain

import (
	"context"
	"image"
	"time"
)

// Fetcher pulls one cycle worth of data from the price API
type Fetcher interface {
	Fetch(ctx context.Context) (PriceSeries, MarketSnapshot, error)
}

// ChartRenderer turns a series into a small sparkline raster
type ChartRenderer interface {
	Render(series PriceSeries) (image.Image, error)
}

// Composer lays out the final display frame
type Composer interface {
	Compose(series PriceSeries, snap MarketSnapshot, isATH bool, chart image.Image, now time.Time) (*image.Gray, error)
}

// DisplaySink receives composed frames. Close releases the underlying device
// and must be safe to call once at shutdown.
type DisplaySink interface {
	Show(img image.Image) error
	Close() error
}
