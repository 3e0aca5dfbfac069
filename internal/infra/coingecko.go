package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crypto_ticker/internal/domain"
)

// marketEntry is one element of the /coins/markets payload. Numbers are
// pointers so a null can be told apart from a real zero.
type marketEntry struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Image        string   `json:"image"`
	CurrentPrice *float64 `json:"current_price"`
	ATH          *float64 `json:"ath"`
	TotalVolume  *float64 `json:"total_volume"`
}

func (e marketEntry) snapshot() (domain.MarketSnapshot, error) {
	if e.CurrentPrice == nil {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: current_price", domain.ErrNullValue)
	}
	if e.ATH == nil {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: ath", domain.ErrNullValue)
	}

	snap := domain.MarketSnapshot{
		CoinID:       e.ID,
		Symbol:       e.Symbol,
		Name:         e.Name,
		ImageURL:     e.Image,
		CurrentPrice: *e.CurrentPrice,
		AllTimeHigh:  *e.ATH,
	}
	// Volume is only logged
	if e.TotalVolume != nil {
		snap.Volume = *e.TotalVolume
	}
	return snap, nil
}

// marketChartResponse is the market_chart/range payload. Prices is a list
// of [timestamp_ms, price] pairs.
type marketChartResponse struct {
	Prices *[][]*float64 `json:"prices"`
}

// CoinGeckoClient fetches the current market and the lookback series for one
// coin/currency pair. It never retries; the poll loop tries again next cycle.
type CoinGeckoClient struct {
	baseURL    string
	coin       string
	currency   string
	lookback   time.Duration
	httpClient *http.Client
	now        func() time.Time
	logger     *slog.Logger
}

// NewCoinGeckoClient creates a client from config
func NewCoinGeckoClient(cfg *Config, logger *slog.Logger) *CoinGeckoClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoinGeckoClient{
		baseURL:  cfg.API.BaseURL,
		coin:     cfg.API.Coin,
		currency: cfg.API.Currency,
		lookback: time.Duration(cfg.API.Days) * 24 * time.Hour,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		now:    time.Now,
		logger: logger.With("module", "coingecko"),
	}
}

// Fetch pulls the markets entry and the price range for the lookback window.
// The returned series ends with the current price.
func (c *CoinGeckoClient) Fetch(ctx context.Context) (domain.PriceSeries, domain.MarketSnapshot, error) {
	end := c.now()
	start := end.Add(-c.lookback)

	snap, err := c.FetchMarket(ctx)
	if err != nil {
		return nil, domain.MarketSnapshot{}, err
	}

	prices, err := c.fetchRange(ctx, start.Unix(), end.Unix())
	if err != nil {
		c.logger.Warn("Time series response could not be used", slog.Any("error", err))
		return nil, domain.MarketSnapshot{}, err
	}

	series := make(domain.PriceSeries, 0, len(prices)+1)
	series = append(series, prices...)
	series = append(series, snap.CurrentPrice)

	c.logger.Debug("Fetched market data",
		slog.Int("samples", len(series)),
		slog.Float64("price", snap.CurrentPrice),
		slog.Float64("ath", snap.AllTimeHigh),
		slog.Float64("volume", snap.Volume),
	)

	return series, snap, nil
}

// FetchMarket pulls only the markets entry for the coin
func (c *CoinGeckoClient) FetchMarket(ctx context.Context) (domain.MarketSnapshot, error) {
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("ids", c.coin)

	var markets []marketEntry
	if err := c.getJSON(ctx, "/coins/markets?"+q.Encode(), &markets); err != nil {
		return domain.MarketSnapshot{}, domain.NewFetchError("markets", err)
	}
	if len(markets) == 0 {
		return domain.MarketSnapshot{}, domain.NewFetchError("markets", domain.ErrEmptyMarket)
	}

	snap, err := markets[0].snapshot()
	if err != nil {
		return domain.MarketSnapshot{}, domain.NewFetchError("markets", err)
	}
	return snap, nil
}

func (c *CoinGeckoClient) fetchRange(ctx context.Context, from, to int64) ([]float64, error) {
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("from", strconv.FormatInt(from, 10))
	q.Set("to", strconv.FormatInt(to, 10))

	path := "/coins/" + url.PathEscape(c.coin) + "/market_chart/range?" + q.Encode()

	var resp marketChartResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, domain.NewFetchError("market_chart", err)
	}
	if resp.Prices == nil {
		return nil, domain.NewFetchError("market_chart", domain.ErrMissingPrices)
	}

	prices := make([]float64, 0, len(*resp.Prices))
	for i, pair := range *resp.Prices {
		if len(pair) < 2 {
			return nil, domain.NewFetchError("market_chart", fmt.Errorf("malformed price pair at index %d", i))
		}
		if pair[1] == nil {
			return nil, domain.NewFetchError("market_chart", fmt.Errorf("%w: price at index %d", domain.ErrNullValue, i))
		}
		prices = append(prices, *pair[1])
	}
	return prices, nil
}

func (c *CoinGeckoClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("body read error: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d - %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("JSON parse error at offset %d: %w", syntaxErr.Offset, err)
		}
		return fmt.Errorf("JSON parse error: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
