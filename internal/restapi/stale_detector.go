package restapi

import (
	"time"
)

// StaleDetector flags a feed whose last successful load is too old.
type StaleDetector struct {
	threshold time.Duration
}

func NewStaleDetector() *StaleDetector {
	return &StaleDetector{
		threshold: 48 * time.Hour,
	}
}

func (d *StaleDetector) WithThreshold(threshold time.Duration) *StaleDetector {
	d.threshold = threshold
	return d
}

// Check reports whether lastUpdated is older than the threshold. A zero
// time counts as stale.
func (d *StaleDetector) Check(lastUpdated time.Time, currentTime time.Time) bool {
	if lastUpdated.IsZero() {
		return true
	}
	return currentTime.Sub(lastUpdated) > d.threshold
}
