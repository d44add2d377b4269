package monitor

import "time"

const (
	// MinSleep floors the inter-cycle sleep so a slow cycle cannot starve
	// the scheduler.
	MinSleep = 100 * time.Millisecond

	// MaxHashDistance is the perception-hash Hamming distance at or below
	// which a frame counts as unchanged and matching is skipped.
	MaxHashDistance = 3

	// DegenerateNotifyInterval rate-limits the "capture looks black"
	// notification per source.
	DegenerateNotifyInterval = 60 * time.Second

	// StatsReportCycles is how often cache and capture statistics are
	// logged.
	StatsReportCycles = 100

	// HistoryLen bounds each source's detection history ring.
	HistoryLen = 20
)
