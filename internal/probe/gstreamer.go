package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/fpv-tools/rx5808/internal/channels"
)

// Runtime is the gstreamer pipeline launcher the capture shells out to.
const Runtime = "gst-launch-1.0"

// ErrNoVideoDevice is returned when neither the configured device nor
// any /dev/video* node exists.
var ErrNoVideoDevice = errors.New("no video capture device found")

// VideoConfig describes the capture source the receiver's composite
// output is attached to.
type VideoConfig struct {
	Device    string
	Width     int
	Height    int
	Framerate int
	Format    string
}

// DefaultVideoConfig returns the capture settings for the common
// USB composite grabbers used with RX5808 modules.
func DefaultVideoConfig() VideoConfig {
	return VideoConfig{
		Device:    "/dev/video0",
		Width:     720,
		Height:    480,
		Framerate: 30,
		Format:    "YUY2",
	}
}

// WithGStreamerLogger sets the logger for the capture probe.
func WithGStreamerLogger(logger *slog.Logger) func(g *GStreamer) {
	return func(g *GStreamer) {
		g.logger = logger.With(slog.String("component", "probe"))
	}
}

// GStreamer captures a single JPEG frame per probe by running a
// gst-launch pipeline as a subprocess. Cancelling the context kills the
// pipeline, so a stuck capture never outlives its caller's deadline.
type GStreamer struct {
	binPath string
	video   VideoConfig
	logger  *slog.Logger
}

// NewGStreamer locates the gstreamer launcher and resolves the capture
// device up front, so a missing runtime fails at construction rather
// than mid-scan.
func NewGStreamer(video VideoConfig, options ...func(g *GStreamer)) (*GStreamer, error) {
	binPath, err := exec.LookPath(Runtime)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", Runtime, err)
	}

	device, err := ResolveDevice(video.Device)
	if err != nil {
		return nil, err
	}
	video.Device = device

	g := GStreamer{
		binPath: binPath,
		video:   video,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&g)
	}

	return &g, nil
}

// Capture runs one single-buffer pipeline into a temporary JPEG file and
// returns the file size. A pipeline failure or an empty file is a failed
// capture, reported as an error for the caller to classify.
func (g *GStreamer) Capture(ctx context.Context, ch channels.Channel) (int64, error) {
	f, err := os.CreateTemp("", "rx5808-probe-*.jpg")
	if err != nil {
		return 0, fmt.Errorf("creating capture file: %w", err)
	}
	tmpPath := f.Name()
	f.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, g.binPath, g.args(tmpPath)...)
	g.logger.Debug("capturing frame",
		slog.Int("channel", ch.Index+1),
		slog.Int("frequencyMHz", ch.FrequencyMHz))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("capture pipeline: %w", err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("reading capture file: %w", err)
	}
	return info.Size(), nil
}

// args builds the gst-launch pipeline: one v4l2 buffer, JPEG-encoded,
// written to path.
func (g *GStreamer) args(path string) []string {
	return []string{
		"-q",
		"v4l2src", "device=" + g.video.Device, "num-buffers=1",
		"!", fmt.Sprintf("video/x-raw, format=%s, framerate=%d/1, width=%d, height=%d",
			g.video.Format, g.video.Framerate, g.video.Width, g.video.Height),
		"!", "jpegenc",
		"!", "filesink", "location=" + path,
	}
}

// ResolveDevice returns device if it exists, otherwise the first
// /dev/video* node on the host.
func ResolveDevice(device string) (string, error) {
	return resolveDevice(device, "/dev/video*")
}

func resolveDevice(device, pattern string) (string, error) {
	if _, err := os.Stat(device); err == nil {
		return device, nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("listing video devices: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s missing and no match for %s", ErrNoVideoDevice, device, pattern)
	}

	sort.Strings(matches)
	return matches[0], nil
}
