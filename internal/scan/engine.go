// Package scan discovers live channels by tuning the receiver across the
// full channel table and probing each stop for signal presence. A scan
// is a cancellable background job reporting progress over a channel.
package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fpv-tools/rx5808/internal/channels"
	"github.com/fpv-tools/rx5808/internal/probe"
)

const (
	// DefaultThreshold is the minimum sample size classifying a channel
	// as live.
	DefaultThreshold int64 = 5000

	// DefaultSettleTime is the wait between tuning a channel and probing
	// it, giving the synthesizer and the capture chain time to lock.
	DefaultSettleTime = 200 * time.Millisecond

	// DefaultProbeTimeout bounds a single capture.
	DefaultProbeTimeout = 4 * time.Second

	// settleSlice bounds cancellation latency during the settle wait.
	settleSlice = 10 * time.Millisecond
)

// Tuner selects a receiver channel by frequency. *rx5808.Controller
// satisfies it.
type Tuner interface {
	Tune(frequencyMHz int) (int, error)
}

// WithThreshold sets the liveness threshold in bytes.
func WithThreshold(threshold int64) func(e *Engine) {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// WithAutoSelect controls whether the scan tunes to the first live
// channel found once the full table has been covered.
func WithAutoSelect(enabled bool) func(e *Engine) {
	return func(e *Engine) {
		e.autoSelect = enabled
	}
}

// WithSettleTime sets the post-tune settle wait.
func WithSettleTime(d time.Duration) func(e *Engine) {
	return func(e *Engine) {
		e.settleTime = d
	}
}

// WithProbeTimeout sets the per-channel capture timeout.
func WithProbeTimeout(d time.Duration) func(e *Engine) {
	return func(e *Engine) {
		e.probeTimeout = d
	}
}

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) func(e *Engine) {
	return func(e *Engine) {
		e.logger = logger.With(slog.String("component", "scan"))
	}
}

// Engine runs at most one scan at a time on a dedicated goroutine.
// Progress is delivered on the channel returned by Start; the channel
// is buffered for the whole scan and closed after the terminal status,
// so the engine never blocks on a slow or absent observer.
type Engine struct {
	tuner Tuner
	probe probe.Probe
	table *channels.Table

	threshold    int64
	autoSelect   bool
	settleTime   time.Duration
	probeTimeout time.Duration
	logger       *slog.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an Engine scanning the given table with the given tuner
// and probe.
func New(tuner Tuner, p probe.Probe, table *channels.Table, options ...func(e *Engine)) *Engine {
	e := Engine{
		tuner:        tuner,
		probe:        p,
		table:        table,
		threshold:    DefaultThreshold,
		autoSelect:   true,
		settleTime:   DefaultSettleTime,
		probeTimeout: DefaultProbeTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&e)
	}

	return &e
}

// Start launches a scan and returns its progress channel. It fails with
// ErrScanRunning while a previous scan is still in flight. The scan
// stops when ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) (<-chan Progress, error) {
	if e.table.Len() == 0 {
		return nil, ErrEmptyTable
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrScanRunning
	}

	ctx, e.cancel = context.WithCancel(ctx)

	// Starting + one update per channel + terminal status.
	progress := make(chan Progress, e.table.Len()+2)

	e.wg.Add(1)
	go e.run(ctx, progress)

	return progress, nil
}

// Stop cancels a running scan and waits for its terminal notification
// to be emitted. Stopping an idle engine is a no-op.
func (e *Engine) Stop() {
	if !e.running.Load() {
		return
	}
	e.cancel()
	e.wg.Wait()
}

// IsRunning reports whether a scan is in flight.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

func (e *Engine) run(ctx context.Context, progress chan<- Progress) {
	defer e.wg.Done()
	defer e.cancel()
	// The running flag drops before the progress channel closes, so an
	// observer that drained the channel always sees an idle engine.
	defer close(progress)
	defer e.running.Store(false)

	total := e.table.Len()
	var results []Result

	// A probe implementation that panics instead of returning a failure
	// must not kill the scan silently; the observer always gets a
	// terminal status.
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("internal scan fault: %v", r)
			e.logger.Error("scan failed", slog.Any("error", err))
			progress <- Progress{Results: snapshot(results), Status: Status{
				State:  Failed,
				Index:  len(results),
				Total:  total,
				Detail: fmt.Sprintf("Scan failed: %v", r),
				Err:    err,
			}}
		}
	}()

	emit := func(status Status) {
		progress <- Progress{Results: snapshot(results), Status: status}
	}

	e.logger.Info("scan started",
		slog.Int("channels", total),
		slog.Int64("threshold", e.threshold),
		slog.Bool("autoSelect", e.autoSelect))
	emit(Status{State: Starting, Total: total, Detail: "Starting scan"})

	best := 0
	for _, ch := range e.table.All() {
		select {
		case <-ctx.Done():
			emit(cancelledStatus(len(results), total))
			return
		default:
		}

		res, interrupted := e.probeChannel(ctx, ch)
		if interrupted {
			emit(cancelledStatus(len(results), total))
			return
		}

		results = append(results, res)

		// First live channel wins; later live channels never replace it.
		if e.autoSelect && best == 0 && res.Live {
			best = res.FrequencyMHz
		}

		emit(Status{
			State:            Scanning,
			Index:            ch.Index + 1,
			Total:            total,
			Detail:           scanDetail(ch.Index+1, total, res),
			BestFrequencyMHz: best,
		})
	}

	if best == 0 {
		e.logger.Info("scan completed, no live signals")
		emit(Status{State: Completed, Index: total, Total: total, Detail: "Completed. No live signals"})
		return
	}

	if _, err := e.tuner.Tune(best); err != nil {
		err = fmt.Errorf("tuning best channel: %w", err)
		e.logger.Error("scan failed", slog.Any("error", err))
		emit(Status{
			State:  Failed,
			Index:  total,
			Total:  total,
			Detail: fmt.Sprintf("Scan failed: %v", err),
			Err:    err,
		})
		return
	}

	e.logger.Info("scan completed", slog.Int("bestFrequencyMHz", best))
	emit(Status{
		State:            Completed,
		Index:            total,
		Total:            total,
		BestFrequencyMHz: best,
		Detail:           fmt.Sprintf("Completed. Best channel: %dMHz", best),
	})
}

// probeChannel tunes one channel, waits out the settle interval and
// captures a sample. The second return value is true when the scan was
// cancelled mid-channel; the partial result is then discarded.
func (e *Engine) probeChannel(ctx context.Context, ch channels.Channel) (Result, bool) {
	res := Result{Index: ch.Index, Label: ch.Label, FrequencyMHz: ch.FrequencyMHz}

	if _, err := e.tuner.Tune(ch.FrequencyMHz); err != nil {
		// Table frequencies always resolve, so a failure here means the
		// bus is unhealthy. Record the channel dead and keep scanning.
		e.logger.Warn("tune failed, marking channel dead",
			slog.Int("frequencyMHz", ch.FrequencyMHz),
			slog.Any("error", err))
		return res, false
	}

	if !e.settleWait(ctx) {
		return res, true
	}

	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	size, err := e.probe.Capture(probeCtx, ch)
	cancel()

	if ctx.Err() != nil {
		return res, true
	}
	if err != nil {
		// A failed capture is data, not an error: the channel is dead.
		e.logger.Debug("probe failed",
			slog.Int("frequencyMHz", ch.FrequencyMHz),
			slog.Any("error", err))
		size = 0
	}
	if size < 0 {
		size = 0
	}

	res.SampleSize = size
	res.Live = size >= e.threshold
	return res, false
}

// settleWait sleeps the settle interval in short slices so a
// cancellation is observed within settleSlice. Returns false when
// cancelled.
func (e *Engine) settleWait(ctx context.Context) bool {
	remaining := e.settleTime
	for remaining > 0 {
		slice := min(remaining, settleSlice)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(slice):
		}
		remaining -= slice
	}
	return true
}

func cancelledStatus(done, total int) Status {
	return Status{State: Cancelled, Index: done, Total: total, Detail: "Scan cancelled"}
}

func scanDetail(index, total int, res Result) string {
	liveness := "dead"
	if res.Live {
		liveness = "live"
	}
	return fmt.Sprintf("Scanning (%d/%d): %s %dMHz %s (%s)",
		index, total, res.Label, res.FrequencyMHz, liveness,
		humanize.Bytes(uint64(res.SampleSize)))
}

func snapshot(results []Result) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	return out
}
