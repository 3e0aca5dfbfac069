package display

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/waveshare2in13v2"
	"periph.io/x/host/v3"
)

// panel is the subset of the Waveshare driver the sink needs
type panel interface {
	Init() error
	Clear(c color.Color) error
	Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error
	Sleep() error
	Bounds() image.Rectangle
}

// HardwareSink pushes frames to a Waveshare 2.13" V2 e-ink HAT over SPI.
// The panel is portrait (122x250) so landscape frames are rotated first.
type HardwareSink struct {
	dev    panel
	port   io.Closer
	logger *slog.Logger
	closed bool
}

// OpenHardwareSink initialises the host drivers, opens the SPI port and
// brings the panel up for full updates, cleared to white.
func OpenHardwareSink(spiPort string, logger *slog.Logger) (*HardwareSink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("open SPI port %q: %w", spiPort, err)
	}

	dev, err := waveshare2in13v2.NewHat(port, &waveshare2in13v2.EPD2in13v2)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("open e-paper HAT: %w", err)
	}

	return newHardwareSink(dev, port, logger)
}

func newHardwareSink(dev panel, port io.Closer, logger *slog.Logger) (*HardwareSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &HardwareSink{
		dev:    dev,
		port:   port,
		logger: logger.With("module", "epd"),
	}

	if err := dev.Init(); err != nil {
		port.Close()
		return nil, fmt.Errorf("init panel: %w", err)
	}
	if err := dev.Clear(color.White); err != nil {
		port.Close()
		return nil, fmt.Errorf("clear panel: %w", err)
	}

	s.logger.Info("✅ E-paper display ready", slog.Any("bounds", dev.Bounds()))
	return s, nil
}

// Show converts the frame to the panel orientation and triggers a full refresh
func (s *HardwareSink) Show(img image.Image) error {
	if s.closed {
		return errors.New("epd: sink closed")
	}

	frame := img
	b := img.Bounds()
	pb := s.dev.Bounds()
	if b.Dx() != pb.Dx() && b.Dx() == pb.Dy() {
		frame = imaging.Rotate90(img)
	}

	if err := s.dev.Draw(pb, frame, frame.Bounds().Min); err != nil {
		return fmt.Errorf("epd draw: %w", err)
	}
	return nil
}

// Close puts the panel into deep sleep and releases the SPI port.
// Calling it more than once is a no-op.
func (s *HardwareSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	sleepErr := s.dev.Sleep()
	portErr := s.port.Close()
	s.logger.Info("E-paper display put to sleep")

	return errors.Join(sleepErr, portErr)
}
