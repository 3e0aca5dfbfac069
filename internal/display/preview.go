package display

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// PreviewSink is the dry-run sink: each frame is written to a PNG and handed
// to a desktop viewer command. The viewer is started, not waited on.
type PreviewSink struct {
	dir    string
	viewer string
	start  func(name string, args ...string) error
	logger *slog.Logger
}

// NewPreviewSink writes frames under dir (a fresh temp dir when empty) and
// opens them with viewer (e.g. "xdg-open"). An empty viewer only saves files.
func NewPreviewSink(dir, viewer string, logger *slog.Logger) (*PreviewSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		d, err := os.MkdirTemp("", "ticker-preview-")
		if err != nil {
			return nil, fmt.Errorf("create preview dir: %w", err)
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}

	return &PreviewSink{
		dir:    dir,
		viewer: viewer,
		start:  startDetached,
		logger: logger.With("module", "preview"),
	}, nil
}

// Show saves the frame and launches the viewer on it
func (s *PreviewSink) Show(img image.Image) error {
	path := s.FramePath()
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}

	s.logger.Debug("Preview frame written", slog.String("path", path))

	if s.viewer == "" {
		return nil
	}
	if err := s.start(s.viewer, path); err != nil {
		return fmt.Errorf("launch viewer %q: %w", s.viewer, err)
	}
	return nil
}

// FramePath is where the latest frame is written
func (s *PreviewSink) FramePath() string {
	return filepath.Join(s.dir, "frame.png")
}

// Close is a no-op; preview files are left for inspection.
func (s *PreviewSink) Close() error {
	return nil
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the viewer without blocking the loop
	go cmd.Wait()
	return nil
}
