package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fpv-tools/rx5808/cmd/rx5808/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var (
		configPath   string
		tuneMHz      int
		status       bool
		scanAll      bool
		reportPath   string
		threshold    int64
		noAutoSelect bool
	)
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.IntVar(&tuneMHz, "tune", 0, "Tune the receiver to a channel frequency in MHz")
	flag.BoolVar(&status, "status", false, "Print the currently tuned frequency")
	flag.BoolVar(&scanAll, "scan", false, "Scan all channels for live signals")
	flag.StringVar(&reportPath, "report", "", "Write a PNG scan report to this path")
	flag.Int64Var(&threshold, "threshold", 0, "Minimum sample size in bytes classifying a channel as live")
	flag.BoolVar(&noAutoSelect, "no-auto-select", false, "Do not tune to the first live channel after scanning")
	flag.Parse()

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	// Flags override the configuration file.
	if reportPath != "" {
		config.Report.Path = reportPath
	}
	if threshold > 0 {
		config.Scan.MinSignalSize = threshold
	}
	if noAutoSelect {
		enabled := false
		config.Scan.AutoSelect = &enabled
	}

	level, err := config.Settings.Level()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	logLevel.Set(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := app.Command{TuneMHz: tuneMHz, Status: status, Scan: scanAll}
	if err = app.Run(ctx, cmd, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
