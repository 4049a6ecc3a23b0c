package scan

// Result is the probe outcome for a single channel. Results are produced
// and reported in strict channel-index order; a failed or skipped probe
// is a dead channel with a zero sample size, never an error.
type Result struct {
	Index        int
	Label        string
	FrequencyMHz int
	Live         bool
	SampleSize   int64
}

// Progress is one asynchronous notification from a running scan: the
// results gathered so far, in index order, and the current status. The
// results slice is a copy owned by the receiver.
type Progress struct {
	Results []Result
	Status  Status
}
