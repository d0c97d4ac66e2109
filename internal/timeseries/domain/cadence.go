package timeseries

import (
	"fmt"
	"time"
)

// maxCadence bounds the native sampling interval; larger gaps are missing data.
const maxCadence = 60 * time.Minute

// Cadence is a native sampling interval in whole minutes.
type Cadence int

// Duration converts the cadence to a time.Duration.
func (c Cadence) Duration() time.Duration { return time.Duration(c) * time.Minute }

// String renders the cadence the way resample rules are usually written.
func (c Cadence) String() string { return fmt.Sprintf("%dmin", int(c)) }

// DetectCadence infers the sampling interval of a series: the smallest
// strictly positive delta between consecutive timestamps, ignoring deltas
// above one hour. Fractional minutes are truncated.
func DetectCadence(s Series) (Cadence, error) {
	ordered := s.known()
	best := Cadence(0)
	for i := 1; i < len(ordered); i++ {
		delta := ordered[i].At.Sub(ordered[i-1].At)
		if delta <= 0 || delta > maxCadence {
			continue
		}
		minutes := Cadence(delta / time.Minute)
		if minutes == 0 {
			continue
		}
		if best == 0 || minutes < best {
			best = minutes
		}
	}
	if best == 0 {
		return 0, ErrCadenceUndetectable
	}
	return best, nil
}
