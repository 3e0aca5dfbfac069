package app

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"crypto_ticker/internal/display"
	"crypto_ticker/internal/domain"
	"crypto_ticker/internal/engine"
	"crypto_ticker/internal/infra"
	"crypto_ticker/internal/infra/storage"
	"crypto_ticker/internal/render"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Store      *storage.Store
	Downloader *infra.IconDownloader
	Client     *infra.CoinGeckoClient
	Assets     *render.Assets
	Sink       domain.DisplaySink
	Metrics    *infra.Metrics
	Console    io.Writer
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{
		Metrics: &infra.Metrics{},
		Console: os.Stdout,
	}
}

// Initialize loads config, installs the logger and opens the asset store
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping ticker...",
		slog.String("coin", cfg.API.Coin),
		slog.String("currency", cfg.API.Currency),
	)

	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Asset store initialized")

	downloader, err := infra.NewIconDownloader(filepath.Join(cfg.Assets.Dir, "cache"), cfg.Assets.IconSizePx)
	if err != nil {
		return err
	}
	b.Downloader = downloader

	b.Client = infra.NewCoinGeckoClient(cfg, slog.Default())
	return nil
}

// LoadAssets loads fonts and icons. Missing icons are not fatal: the
// composer draws text badges in their place.
func (b *Bootstrap) LoadAssets(ctx context.Context) error {
	cfg := b.Config

	priceFace, labelFace, missing, err := render.LoadFaces(b.assetPath(cfg.Assets.PriceFont), b.assetPath(cfg.Assets.LabelFont))
	if err != nil {
		return fmt.Errorf("load fonts: %w", err)
	}
	for _, path := range missing {
		slog.Warn("Configured font missing, using embedded Go font", slog.String("path", path))
	}

	assets := &render.Assets{
		PriceFace: priceFace,
		LabelFace: labelFace,
		Symbol:    cfg.API.Coin,
	}

	if cfg.Assets.ATHIcon != "" {
		if icon, err := render.LoadIcon(b.assetPath(cfg.Assets.ATHIcon)); err != nil {
			slog.Warn("ATH icon unavailable, using text badge", slog.Any("error", err))
		} else {
			assets.ATHIcon = icon
		}
	}

	if cfg.Assets.TokenIcon != "" {
		if icon, err := render.LoadIcon(b.assetPath(cfg.Assets.TokenIcon)); err != nil {
			slog.Warn("Token icon unavailable", slog.Any("error", err))
		} else {
			assets.TokenIcon = icon
		}
	}

	if assets.TokenIcon == nil {
		icon, symbol, err := b.SyncTokenIcon(ctx)
		if err != nil {
			slog.Warn("Failed to sync token icon, using symbol badge", slog.Any("error", err))
		} else {
			assets.TokenIcon = icon
		}
		if symbol != "" {
			assets.Symbol = symbol
		}
	}

	b.Assets = assets
	slog.Info("✅ Assets loaded",
		slog.Bool("token_icon", assets.TokenIcon != nil),
		slog.Bool("ath_icon", assets.ATHIcon != nil),
	)
	return nil
}

// SyncTokenIcon returns the coin's cached icon, downloading it first when
// the store has no usable copy. The coin symbol is returned whenever known,
// even if the icon could not be obtained.
func (b *Bootstrap) SyncTokenIcon(ctx context.Context) (image.Image, string, error) {
	coinID := b.Config.API.Coin

	coin, err := b.Store.GetCoin(coinID)
	if err != nil {
		return nil, "", fmt.Errorf("lookup coin: %w", err)
	}
	if coin != nil && coin.IconPath != "" {
		if icon, err := render.LoadIcon(coin.IconPath); err == nil {
			return icon, coin.Symbol, nil
		}
	}

	snap, err := b.Client.FetchMarket(ctx)
	if err != nil {
		return nil, "", err
	}

	if coin == nil {
		coin = &domain.CoinInfo{ID: coinID}
	}
	coin.Symbol = snap.Symbol
	coin.Name = snap.Name
	coin.ImageURL = snap.ImageURL

	path, dlErr := b.Downloader.DownloadIcon(ctx, coinID, snap.ImageURL)
	if dlErr == nil {
		coin.IconPath = path
		coin.LastSyncedAt = time.Now()
	}

	if err := b.Store.UpsertCoin(coin); err != nil {
		slog.Error("Failed to upsert coin", slog.String("coin", coinID), slog.Any("error", err))
	}

	if dlErr != nil {
		return nil, snap.Symbol, fmt.Errorf("download icon: %w", dlErr)
	}

	icon, err := render.LoadIcon(path)
	if err != nil {
		return nil, snap.Symbol, err
	}
	return icon, snap.Symbol, nil
}

// OpenSink selects the display sink once: the preview viewer in dry-run
// mode, the e-paper panel otherwise.
func (b *Bootstrap) OpenSink(dryRun bool) error {
	if dryRun {
		sink, err := display.NewPreviewSink("", b.Config.Display.Viewer, slog.Default())
		if err != nil {
			return err
		}
		b.Sink = sink
		slog.Info("✅ Dry run: frames go to the preview viewer", slog.String("path", sink.FramePath()))
		return nil
	}

	sink, err := display.OpenHardwareSink(b.Config.Display.SPIPort, slog.Default())
	if err != nil {
		return err
	}
	b.Sink = sink
	return nil
}

// NewLoop builds the poll loop from the initialized components
func (b *Bootstrap) NewLoop() (*engine.Loop, error) {
	composer, err := render.NewFrameComposer(b.Assets, b.Config.API.Days, b.Console, slog.Default())
	if err != nil {
		return nil, err
	}

	cfg := engine.Config{
		FetchInterval: b.Config.FetchInterval(),
		TickInterval:  b.Config.TickInterval(),
	}

	return engine.NewLoop(cfg, b.Client, render.NewSparklineRenderer(), composer, b.Sink, b.Metrics, slog.Default()), nil
}

// Close releases the asset store. The sink is closed by the loop.
func (b *Bootstrap) Close() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("Failed to close asset store", slog.Any("error", err))
		}
	}
}

func (b *Bootstrap) assetPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.Config.Assets.Dir, p)
}
