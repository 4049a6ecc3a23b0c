package scan

import "errors"

var (
	// ErrScanRunning indicates a scan is already in progress; only one
	// scan may run at a time.
	ErrScanRunning = errors.New("scan is already running")

	// ErrEmptyTable indicates the engine was given no channels to scan.
	ErrEmptyTable = errors.New("channel table is empty")
)
