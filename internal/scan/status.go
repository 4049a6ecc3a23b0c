package scan

// State is the lifecycle state of a scan. A scan moves Idle → Starting →
// Scanning and finishes in exactly one of Completed, Cancelled or
// Failed, after which the engine is Idle again and may be restarted.
type State int

const (
	Idle State = iota
	Starting
	Scanning
	Completed
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Starting:
		return "Starting"
	case Scanning:
		return "Scanning"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further progress notifications follow.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Status describes a scan at one point in time. Index counts channels
// already reported (1-based on Scanning updates); BestFrequencyMHz is
// zero until auto-select latches a live channel and on scans that found
// none. Err is set only on Failed.
type Status struct {
	State            State
	Index            int
	Total            int
	Detail           string
	BestFrequencyMHz int
	Err              error
}
