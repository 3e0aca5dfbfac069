package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconDownloader fetches the coin logo once and caches a grayscale copy
// sized for the display's icon region.
type IconDownloader struct {
	basePath string
	size     int
	client   *http.Client
}

// NewIconDownloader creates a downloader caching into basePath
func NewIconDownloader(basePath string, size int) (*IconDownloader, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create icon cache directory: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 4
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: basePath,
		size:     size,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon downloads the icon for coinID from imageURL if it is not cached
// yet and returns the local file path.
func (d *IconDownloader) DownloadIcon(ctx context.Context, coinID, imageURL string) (string, error) {
	safeID := sanitizeSymbol(coinID)
	if safeID == "" {
		return "", fmt.Errorf("invalid coin id: %q", coinID)
	}

	filePath := d.IconPath(safeID)
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	if imageURL == "" {
		return "", fmt.Errorf("no image URL for %s", coinID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Keep aspect ratio, the panel only shows gray levels anyway
	icon := imaging.Grayscale(imaging.Fit(srcImg, d.size, d.size, imaging.Lanczos))

	if err := imaging.Save(icon, filePath); err != nil {
		return "", fmt.Errorf("failed to save icon: %w", err)
	}

	return filePath, nil
}

// IconPath returns the cache path for a coin's icon
func (d *IconDownloader) IconPath(coinID string) string {
	return filepath.Join(d.basePath, strings.ToLower(coinID)+".png")
}

func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			res = append(res, r)
		}
	}
	return string(res)
}
