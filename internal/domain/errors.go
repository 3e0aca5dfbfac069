package domain

import "errors"

// FetchError is any fault raised while pulling data from the price API.
// Transport failures, bad status codes and malformed bodies all end up here
// so the poll loop can recover from them the same way.
type FetchError struct {
	Op  string // Request that failed (e.g., "markets", "market_chart")
	Err error  // Underlying error
}

func (e *FetchError) Error() string {
	return "fetch " + e.Op + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrFetchFailed) match every FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// NewFetchError wraps err as a fetch failure for the given request.
func NewFetchError(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err}
}

// IsFetchFailure reports whether err came from the fetch stage.
func IsFetchFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrFetchFailed matches any FetchError.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrEmptyMarket is returned when the markets endpoint yields no entries.
	ErrEmptyMarket = errors.New("empty markets response")

	// ErrMissingPrices is returned when the chart response has no "prices" field.
	ErrMissingPrices = errors.New("missing prices in chart response")

	// ErrNullValue is returned when a required numeric field is null or absent.
	ErrNullValue = errors.New("null value in response")

	// ErrSeriesTooShort is returned when a series has fewer than MinSeriesLen samples.
	ErrSeriesTooShort = errors.New("price series too short")

	// ErrAssetNotFound is returned when a static asset (icon, font) cannot be located
	ErrAssetNotFound = errors.New("asset not found")
)
