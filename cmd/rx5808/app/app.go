package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fpv-tools/rx5808/internal/channels"
	"github.com/fpv-tools/rx5808/internal/probe"
	"github.com/fpv-tools/rx5808/internal/report"
	"github.com/fpv-tools/rx5808/internal/rx5808"
	"github.com/fpv-tools/rx5808/internal/scan"
)

// Command selects what a single invocation does.
type Command struct {
	TuneMHz int  // tune to this frequency and exit
	Status  bool // print the currently tuned frequency
	Scan    bool // scan the full channel table
}

// Run wires the GPIO bus, controller, probe and scan engine together
// and executes the requested command.
func Run(ctx context.Context, cmd Command, config *Config, logger *slog.Logger) error {
	table := channels.Default()

	bus, err := rx5808.NewGPIOBus(config.Pins.Data, config.Pins.Select, config.Pins.Clock)
	if err != nil {
		return fmt.Errorf("opening GPIO bus: %w", err)
	}

	controller := rx5808.NewController(bus, table, rx5808.WithLogger(logger))

	switch {
	case cmd.TuneMHz > 0:
		tuned, err := controller.Tune(cmd.TuneMHz)
		if err != nil {
			return err
		}
		logger.Info("receiver tuned", slog.Int("frequencyMHz", tuned))
		return nil

	case cmd.Status:
		current, err := controller.CurrentFrequency()
		if err != nil {
			return err
		}
		fmt.Println(current)
		return nil

	case cmd.Scan:
		return runScan(ctx, config, table, controller, logger)
	}

	return fmt.Errorf("no command specified: use -tune, -status or -scan")
}

func runScan(ctx context.Context, config *Config, table *channels.Table, controller *rx5808.Controller, logger *slog.Logger) error {
	capture, err := probe.NewGStreamer(probe.VideoConfig{
		Device:    config.Video.Device,
		Width:     config.Video.Width,
		Height:    config.Video.Height,
		Framerate: config.Video.Framerate,
		Format:    config.Video.Format,
	}, probe.WithGStreamerLogger(logger))
	if err != nil {
		return fmt.Errorf("creating capture probe: %w", err)
	}

	engine := scan.New(controller, capture, table,
		scan.WithThreshold(config.Scan.MinSignalSize),
		scan.WithAutoSelect(*config.Scan.AutoSelect),
		scan.WithSettleTime(time.Duration(config.Scan.SettleTime)),
		scan.WithProbeTimeout(time.Duration(config.Scan.ProbeTimeout)),
		scan.WithLogger(logger),
	)

	progress, err := engine.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting scan: %w", err)
	}

	var last scan.Progress
	for p := range progress {
		last = p

		switch p.Status.State {
		case scan.Scanning:
			res := p.Results[len(p.Results)-1]
			logger.Info("channel probed",
				slog.Int("channel", res.Index+1),
				slog.String("label", res.Label),
				slog.Int("frequencyMHz", res.FrequencyMHz),
				slog.Bool("live", res.Live),
				slog.String("sample", humanize.Bytes(uint64(res.SampleSize))))
		default:
			logger.Info(p.Status.Detail)
		}
	}

	if config.Report.Path != "" && len(last.Results) > 0 {
		if err := report.WritePNG(config.Report.Path, last.Results, config.Scan.MinSignalSize); err != nil {
			return fmt.Errorf("writing scan report: %w", err)
		}
		logger.Info("scan report written", slog.String("path", config.Report.Path))
	}

	if last.Status.State == scan.Failed {
		return last.Status.Err
	}
	return nil
}
