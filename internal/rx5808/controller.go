package rx5808

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fpv-tools/rx5808/internal/channels"
)

// ErrUnknownFrequency is returned by Tune when the requested frequency
// has no entry in the channel table. No bus writes happen in that case.
var ErrUnknownFrequency = errors.New("frequency not in channel table")

// WithLogger sets the logger for the controller.
func WithLogger(logger *slog.Logger) func(c *Controller) {
	return func(c *Controller) {
		c.logger = logger.With(slog.String("component", "rx5808"))
	}
}

// Controller exposes tune and read-back operations on a receiver module.
// All register sequences are serialized through a single bus lock; a
// tune issued while another caller reads the frequency register never
// interleaves bit sequences, which would latch a corrupted word.
type Controller struct {
	bus    Bus
	table  *channels.Table
	logger *slog.Logger

	// mu guards the full duration of one register sequence. It is never
	// held across anything but bus operations.
	mu sync.Mutex
}

// NewController creates a Controller over the given bus and channel table.
func NewController(bus Bus, table *channels.Table, options ...func(c *Controller)) *Controller {
	c := Controller{
		bus:    bus,
		table:  table,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Tune switches the receiver to the channel with an exact frequency
// match. The frequency is validated before any hardware access; on a
// miss the bus is untouched and ErrUnknownFrequency is returned. On
// success the bus lines are left low and the matched frequency is
// returned.
func (c *Controller) Tune(frequencyMHz int) (int, error) {
	ch, ok := c.table.ByFrequency(frequencyMHz)
	if !ok {
		return 0, fmt.Errorf("%w: %dMHz", ErrUnknownFrequency, frequencyMHz)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("tuning receiver",
		slog.Int("frequencyMHz", ch.FrequencyMHz),
		slog.String("register", fmt.Sprintf("%#05x", ch.RegisterValue)))

	if err := c.writeRegister(regSynthControl, synthEnableWord); err != nil {
		return 0, fmt.Errorf("enabling synthesizer: %w", err)
	}
	if err := c.writeRegister(regFrequency, ch.RegisterValue); err != nil {
		return 0, fmt.Errorf("writing tuning word: %w", err)
	}
	if err := c.idleBus(); err != nil {
		return 0, fmt.Errorf("idling bus: %w", err)
	}

	return ch.FrequencyMHz, nil
}

// CurrentFrequency reads the frequency register back and maps it to a
// channel. A word outside the table is reported as unknown with the raw
// hex value; the module may be mid-transition or carry a power-on
// default.
func (c *Controller) CurrentFrequency() (string, error) {
	c.mu.Lock()
	value, err := c.readRegister(regFrequency)
	c.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("reading frequency register: %w", err)
	}

	if ch, ok := c.table.ByRegisterValue(value); ok {
		return fmt.Sprintf("%dMHz", ch.FrequencyMHz), nil
	}
	return fmt.Sprintf("Unknown (%#x)", value), nil
}
