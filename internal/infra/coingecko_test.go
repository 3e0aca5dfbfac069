package infra

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crypto_ticker/internal/domain"
)

const marketsBody = `[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"http://img/btc.png","current_price":107,"ath":106,"total_volume":12345.5}]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*CoinGeckoClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.API.BaseURL = server.URL
	client := NewCoinGeckoClient(cfg, nil)
	client.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return client, server
}

func TestCoinGeckoClient_Fetch(t *testing.T) {
	var gotRange string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/coins/markets":
			if r.URL.Query().Get("ids") != "bitcoin" || r.URL.Query().Get("vs_currency") != "usd" {
				t.Errorf("unexpected markets query: %s", r.URL.RawQuery)
			}
			w.Write([]byte(marketsBody))
		case r.URL.Path == "/coins/bitcoin/market_chart/range":
			gotRange = r.URL.Query().Get("from") + "-" + r.URL.Query().Get("to")
			w.Write([]byte(`{"prices":[[1,100],[2,102],[3,98],[4,101],[5,99],[6,103],[7,105]]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	series, snap, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	want := domain.PriceSeries{100, 102, 98, 101, 99, 103, 105, 107}
	if len(series) != len(want) {
		t.Fatalf("series length = %d, want %d", len(series), len(want))
	}
	for i := range want {
		if series[i] != want[i] {
			t.Errorf("series[%d] = %v, want %v", i, series[i], want[i])
		}
	}

	if snap.AllTimeHigh != 106 || snap.Volume != 12345.5 || snap.Symbol != "btc" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if !snap.IsAllTimeHigh() {
		t.Error("107 > 106 should be ATH")
	}

	// 7 days back from the fixed clock
	if gotRange != "1699395200-1700000000" {
		t.Errorf("range = %s", gotRange)
	}
}

func TestCoinGeckoClient_FetchFailures(t *testing.T) {
	tests := []struct {
		name      string
		chartBody string
		status    int
		cause     error
	}{
		{"non-json", "<html>rate limited</html>", http.StatusOK, nil},
		{"missing prices", `{"market_caps":[]}`, http.StatusOK, domain.ErrMissingPrices},
		{"bad status", `{}`, http.StatusTooManyRequests, nil},
		{"short pair", `{"prices":[[1]]}`, http.StatusOK, nil},
		{"null price", `{"prices":[[1,100],[2,null],[3,98]]}`, http.StatusOK, domain.ErrNullValue},
		{"null prices list", `{"prices":null}`, http.StatusOK, domain.ErrMissingPrices},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/markets") {
					w.Write([]byte(marketsBody))
					return
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.chartBody))
			})
			var logs bytes.Buffer
			client.logger = slog.New(slog.NewTextHandler(&logs, nil))

			series, _, err := client.Fetch(context.Background())
			if !errors.Is(err, domain.ErrFetchFailed) {
				t.Fatalf("expected fetch failure, got %v (series %v)", err, series)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("expected cause %v, got %v", tt.cause, err)
			}
			if !strings.Contains(logs.String(), "Time series response could not be used") {
				t.Errorf("expected time series warning in log, got %q", logs.String())
			}
		})
	}
}

func TestCoinGeckoClient_MarketFailures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		cause error
	}{
		{"empty", `[]`, domain.ErrEmptyMarket},
		{"null current price", `[{"id":"bitcoin","current_price":null,"ath":106}]`, domain.ErrNullValue},
		{"null ath", `[{"id":"bitcoin","current_price":107,"ath":null}]`, domain.ErrNullValue},
		{"missing current price", `[{"id":"bitcoin","ath":106}]`, domain.ErrNullValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/markets") {
					w.Write([]byte(tt.body))
					return
				}
				w.Write([]byte(`{"prices":[[1,100],[2,101]]}`))
			})

			_, err := client.FetchMarket(context.Background())
			if !errors.Is(err, tt.cause) || !errors.Is(err, domain.ErrFetchFailed) {
				t.Errorf("expected %v fetch failure, got %v", tt.cause, err)
			}

			if _, _, err := client.Fetch(context.Background()); !domain.IsFetchFailure(err) {
				t.Errorf("Fetch should fail as well, got %v", err)
			}
		})
	}
}

func TestCoinGeckoClient_NullVolumeAllowed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"bitcoin","current_price":107,"ath":106,"total_volume":null}]`))
	})

	snap, err := client.FetchMarket(context.Background())
	if err != nil {
		t.Fatalf("FetchMarket failed: %v", err)
	}
	if snap.CurrentPrice != 107 || snap.Volume != 0 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestCoinGeckoClient_TransportFailure(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, _, err := client.Fetch(context.Background())
	if !domain.IsFetchFailure(err) {
		t.Errorf("transport fault should be a fetch failure, got %v", err)
	}
}
