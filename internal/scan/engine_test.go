package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fpv-tools/rx5808/internal/channels"
)

type fakeTuner struct {
	mu    sync.Mutex
	calls []int
	fail  map[int]error
}

func (f *fakeTuner) Tune(frequencyMHz int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, frequencyMHz)
	if err, ok := f.fail[frequencyMHz]; ok {
		return 0, err
	}
	return frequencyMHz, nil
}

func (f *fakeTuner) tuned() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]int, len(f.calls))
	copy(calls, f.calls)
	return calls
}

type probeFunc func(ctx context.Context, ch channels.Channel) (int64, error)

func (f probeFunc) Capture(ctx context.Context, ch channels.Channel) (int64, error) {
	return f(ctx, ch)
}

// testTable builds an n-channel table with frequencies 5600, 5610, ...
func testTable(t *testing.T, n int) *channels.Table {
	t.Helper()

	chs := make([]channels.Channel, n)
	for i := range chs {
		chs[i] = channels.Channel{
			FrequencyMHz:  5600 + i*10,
			RegisterValue: uint32(0x1000 + i),
		}
	}

	table, err := channels.New(chs)
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}
	return table
}

// drain consumes the progress channel to closure and returns every
// notification.
func drain(t *testing.T, progress <-chan Progress) []Progress {
	t.Helper()

	var all []Progress
	for p := range progress {
		all = append(all, p)
	}
	if len(all) == 0 {
		t.Fatal("Expected at least one progress notification")
	}
	return all
}

func terminal(t *testing.T, all []Progress) Progress {
	t.Helper()

	last := all[len(all)-1]
	if !last.Status.State.Terminal() {
		t.Fatalf("Expected a terminal status, got %v", last.Status.State)
	}
	for _, p := range all[:len(all)-1] {
		if p.Status.State.Terminal() {
			t.Fatalf("Terminal status %v emitted before the end", p.Status.State)
		}
	}
	return last
}

func TestScanFullTableAllDead(t *testing.T) {
	table := channels.Default()
	tuner := &fakeTuner{}
	dead := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		return 100, nil
	})

	e := New(tuner, dead, table, WithSettleTime(0))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	all := drain(t, progress)
	last := terminal(t, all)

	if last.Status.State != Completed {
		t.Fatalf("Expected Completed, got %v", last.Status.State)
	}
	if last.Status.BestFrequencyMHz != 0 {
		t.Errorf("Expected no best channel, got %dMHz", last.Status.BestFrequencyMHz)
	}
	if len(last.Results) != table.Len() {
		t.Fatalf("Expected %d results, got %d", table.Len(), len(last.Results))
	}
	for i, res := range last.Results {
		if res.Index != i {
			t.Errorf("Result %d out of order: index %d", i, res.Index)
		}
		if res.Live {
			t.Errorf("Result %d unexpectedly live", i)
		}
	}

	// One tune per channel and nothing beyond.
	if calls := tuner.tuned(); len(calls) != table.Len() {
		t.Errorf("Expected %d tune calls, got %d", table.Len(), len(calls))
	}

	// Progress counters never go backwards.
	prev := 0
	for _, p := range all {
		if p.Status.State != Scanning {
			continue
		}
		if p.Status.Index <= prev {
			t.Errorf("Progress index went from %d to %d", prev, p.Status.Index)
		}
		prev = p.Status.Index
	}
}

func TestThresholdBoundary(t *testing.T) {
	table := testTable(t, 2)
	tuner := &fakeTuner{}
	sizes := map[int]int64{0: DefaultThreshold, 1: DefaultThreshold - 1}
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		return sizes[ch.Index], nil
	})

	e := New(tuner, p, table, WithSettleTime(0), WithAutoSelect(false))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	last := terminal(t, drain(t, progress))
	if !last.Results[0].Live {
		t.Error("Sample equal to the threshold must classify as live")
	}
	if last.Results[1].Live {
		t.Error("Sample below the threshold must classify as dead")
	}
}

func TestAutoSelectFirstFound(t *testing.T) {
	table := testTable(t, 12)
	tuner := &fakeTuner{}
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		switch ch.Index {
		case 3:
			return 8_000, nil
		case 10:
			return 90_000, nil // stronger, but found later
		default:
			return 0, nil
		}
	})

	e := New(tuner, p, table, WithSettleTime(0))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	last := terminal(t, drain(t, progress))
	wantBest := 5600 + 3*10

	if last.Status.State != Completed {
		t.Fatalf("Expected Completed, got %v", last.Status.State)
	}
	if last.Status.BestFrequencyMHz != wantBest {
		t.Errorf("Expected best channel %dMHz, got %dMHz", wantBest, last.Status.BestFrequencyMHz)
	}

	calls := tuner.tuned()
	if len(calls) != table.Len()+1 {
		t.Fatalf("Expected %d tune calls, got %d", table.Len()+1, len(calls))
	}
	if calls[len(calls)-1] != wantBest {
		t.Errorf("Expected final tune to %dMHz, got %dMHz", wantBest, calls[len(calls)-1])
	}
}

func TestAutoSelectDisabled(t *testing.T) {
	table := testTable(t, 4)
	tuner := &fakeTuner{}
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		return 50_000, nil
	})

	e := New(tuner, p, table, WithSettleTime(0), WithAutoSelect(false))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	last := terminal(t, drain(t, progress))
	if last.Status.BestFrequencyMHz != 0 {
		t.Errorf("Expected no best channel, got %dMHz", last.Status.BestFrequencyMHz)
	}
	if calls := tuner.tuned(); len(calls) != table.Len() {
		t.Errorf("Expected %d tune calls, got %d", table.Len(), len(calls))
	}
}

func TestCancelBeforeFirstProbe(t *testing.T) {
	table := channels.Default()
	tuner := &fakeTuner{}
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		t.Error("Probe must not run on a cancelled scan")
		return 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(tuner, p, table, WithSettleTime(0))
	progress, err := e.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	last := terminal(t, drain(t, progress))
	if last.Status.State != Cancelled {
		t.Fatalf("Expected Cancelled, got %v", last.Status.State)
	}
	if len(last.Results) != 0 {
		t.Errorf("Expected no results, got %d", len(last.Results))
	}
}

func TestCancelAfterKChannels(t *testing.T) {
	const k = 3

	table := testTable(t, 8)
	tuner := &fakeTuner{}
	reached := make(chan struct{})

	var mu sync.Mutex
	captures := 0
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		mu.Lock()
		captures++
		n := captures
		mu.Unlock()

		if n <= k {
			return 100, nil
		}
		close(reached)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := New(tuner, p, table, WithSettleTime(0))
	progress, err := e.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	<-reached
	cancel()

	last := terminal(t, drain(t, progress))
	if last.Status.State != Cancelled {
		t.Fatalf("Expected Cancelled, got %v", last.Status.State)
	}
	if len(last.Results) != k {
		t.Fatalf("Expected exactly %d results, got %d", k, len(last.Results))
	}
	for i, res := range last.Results {
		if res.Index != i {
			t.Errorf("Result %d out of order: index %d", i, res.Index)
		}
	}
}

func TestProbeFailureRecordsDeadChannel(t *testing.T) {
	table := testTable(t, 3)
	tuner := &fakeTuner{}
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		if ch.Index == 1 {
			return 0, errors.New("pipeline exited with status 1")
		}
		return 20_000, nil
	})

	e := New(tuner, p, table, WithSettleTime(0), WithAutoSelect(false))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	last := terminal(t, drain(t, progress))
	if last.Status.State != Completed {
		t.Fatalf("Expected Completed despite a probe failure, got %v", last.Status.State)
	}
	if len(last.Results) != table.Len() {
		t.Fatalf("Expected %d results, got %d", table.Len(), len(last.Results))
	}
	if res := last.Results[1]; res.Live || res.SampleSize != 0 {
		t.Errorf("Expected channel 1 dead with zero sample, got %+v", res)
	}
	if !last.Results[0].Live || !last.Results[2].Live {
		t.Error("Expected channels 0 and 2 live")
	}
}

func TestTuneFailureRecordsDeadChannel(t *testing.T) {
	table := testTable(t, 3)
	badFreq := 5600 + 1*10
	tuner := &fakeTuner{fail: map[int]error{badFreq: errors.New("bus unhealthy")}}

	var mu sync.Mutex
	var probed []int
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		mu.Lock()
		probed = append(probed, ch.Index)
		mu.Unlock()
		return 100, nil
	})

	e := New(tuner, p, table, WithSettleTime(0))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	last := terminal(t, drain(t, progress))
	if last.Status.State != Completed {
		t.Fatalf("Expected Completed, got %v", last.Status.State)
	}
	if len(last.Results) != table.Len() {
		t.Fatalf("Expected %d results, got %d", table.Len(), len(last.Results))
	}
	if res := last.Results[1]; res.Live || res.SampleSize != 0 {
		t.Errorf("Expected the untunable channel dead, got %+v", res)
	}
	for _, index := range probed {
		if index == 1 {
			t.Error("Probe must not run on a channel that failed to tune")
		}
	}
}

func TestSecondScanRejectedWhileRunning(t *testing.T) {
	table := testTable(t, 2)
	tuner := &fakeTuner{}
	started := make(chan struct{})
	var once sync.Once
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return 0, ctx.Err()
	})

	e := New(tuner, p, table, WithSettleTime(0))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	<-started
	if _, err := e.Start(context.Background()); !errors.Is(err, ErrScanRunning) {
		t.Errorf("Expected ErrScanRunning, got %v", err)
	}

	e.Stop()
	last := terminal(t, drain(t, progress))
	if last.Status.State != Cancelled {
		t.Fatalf("Expected Cancelled after Stop, got %v", last.Status.State)
	}

	// The engine is reusable once the previous scan terminated.
	ok := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		return 100, nil
	})
	e2 := New(tuner, ok, table, WithSettleTime(0))
	progress, err = e2.Start(context.Background())
	if err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if last := terminal(t, drain(t, progress)); last.Status.State != Completed {
		t.Errorf("Expected Completed on restart, got %v", last.Status.State)
	}
}

func TestProbePanicFailsScan(t *testing.T) {
	table := testTable(t, 4)
	tuner := &fakeTuner{}
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		if ch.Index == 1 {
			panic("probe wiring bug")
		}
		return 100, nil
	})

	e := New(tuner, p, table, WithSettleTime(0))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	last := terminal(t, drain(t, progress))
	if last.Status.State != Failed {
		t.Fatalf("Expected Failed, got %v", last.Status.State)
	}
	if last.Status.Err == nil {
		t.Error("Expected a scan error")
	}
	if len(last.Results) != 1 {
		t.Errorf("Expected the partial results gathered before the fault, got %d", len(last.Results))
	}
	if e.IsRunning() {
		t.Error("Engine must be idle after a failed scan")
	}
}

func TestStopDuringSettleWait(t *testing.T) {
	table := testTable(t, 2)
	tuner := &fakeTuner{}
	p := probeFunc(func(ctx context.Context, ch channels.Channel) (int64, error) {
		t.Error("Probe must not run, the scan is cancelled during settle")
		return 0, nil
	})

	e := New(tuner, p, table, WithSettleTime(time.Hour))
	progress, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Give the worker time to enter the settle wait, then stop. The
	// sliced wait observes the cancellation long before the hour is up.
	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	e.Stop()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Stop took %v, cancellation latency is unbounded", elapsed)
	}

	last := terminal(t, drain(t, progress))
	if last.Status.State != Cancelled {
		t.Fatalf("Expected Cancelled, got %v", last.Status.State)
	}
	if len(last.Results) != 0 {
		t.Errorf("Expected no results, got %d", len(last.Results))
	}
}

func TestEmptyTableRejected(t *testing.T) {
	table, err := channels.New(nil)
	if err != nil {
		t.Fatalf("Failed to build empty table: %v", err)
	}

	e := New(&fakeTuner{}, probeFunc(nil), table)
	if _, err := e.Start(context.Background()); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable, got %v", err)
	}
}
