package render

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"

	"crypto_ticker/internal/domain"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/opentype"
)

const (
	PriceFontSize = 40
	LabelFontSize = 11
)

// Assets are the static resources the composer draws with. Icons may be nil,
// in which case a text badge is drawn instead.
type Assets struct {
	TokenIcon image.Image
	ATHIcon   image.Image
	PriceFace font.Face
	LabelFace font.Face
	Symbol    string // shown when TokenIcon is nil
}

// LoadFace parses a TTF/OTF file at the given size. With an empty path the
// embedded fallback font is used.
func LoadFace(path string, fallback []byte, size float64) (font.Face, error) {
	data := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: font %s", domain.ErrAssetNotFound, path)
			}
			return nil, err
		}
		data = b
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", path, err)
	}

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// LoadFaces loads the price and label faces. Each face falls back to its
// embedded Go font on its own when the path is empty or missing on disk;
// missing lists the configured paths that were not found.
func LoadFaces(pricePath, labelPath string) (price, label font.Face, missing []string, err error) {
	price, err = LoadFace(pricePath, gomedium.TTF, PriceFontSize)
	if errors.Is(err, domain.ErrAssetNotFound) {
		missing = append(missing, pricePath)
		price, err = LoadFace("", gomedium.TTF, PriceFontSize)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	label, err = LoadFace(labelPath, gobold.TTF, LabelFontSize)
	if errors.Is(err, domain.ErrAssetNotFound) {
		missing = append(missing, labelPath)
		label, err = LoadFace("", gobold.TTF, LabelFontSize)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return price, label, missing, nil
}

// LoadIcon decodes a bitmap icon (BMP, PNG, ...) from disk
func LoadIcon(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: icon %s", domain.ErrAssetNotFound, path)
		}
		return nil, fmt.Errorf("open icon %s: %w", path, err)
	}
	return img, nil
}
