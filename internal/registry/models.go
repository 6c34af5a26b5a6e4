package registry

import (
	"time"

	"vigil/internal/platform"
)

// Origin records how a stream record entered the registry.
type Origin string

const (
	// OriginFetched marks records produced by a platform listing refresh.
	// They are superseded when the same id is fetched again.
	OriginFetched Origin = "fetched"
	// OriginManual marks records injected by the operator. A refresh never
	// overwrites them.
	OriginManual Origin = "manual"
)

// Record is one known stream or VOD, uniquely keyed by (platform, id).
type Record struct {
	Platform  platform.Platform
	ID        string
	Title     string
	StartTime time.Time
	// Duration is zero when the platform listing did not report one.
	Duration time.Duration
	Origin   Origin
}

// Match is the outcome of a date lookup.
type Match struct {
	Record Record
	// Skew is the absolute distance between the target time and the
	// record's start time.
	Skew time.Duration
	// Fuzzy is set when the skew exceeds the configured fuzzy threshold but
	// still falls inside the match window.
	Fuzzy bool
	// DayMatch is set when the record carries date-only precision and was
	// matched by calendar day rather than by timestamp. Day matches are
	// always fuzzy.
	DayMatch bool
}
