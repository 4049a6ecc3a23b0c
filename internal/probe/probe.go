// Package probe measures signal presence on a tuned channel by capturing
// a single frame and reporting its encoded size. A live analog signal
// compresses to a much larger JPEG than receiver noise.
package probe

import (
	"context"

	"github.com/fpv-tools/rx5808/internal/channels"
)

// Probe captures one sample for the channel the receiver is currently
// tuned to and returns its size in bytes. Implementations must honor
// context cancellation promptly, aborting any capture in flight.
type Probe interface {
	Capture(ctx context.Context, ch channels.Channel) (int64, error)
}
