package timeseries

import "errors"

var (
	// ErrCadenceUndetectable is returned when no gap in (0, 60] minutes exists.
	ErrCadenceUndetectable = errors.New("timeseries: cadence undetectable")
	// ErrEmptySeries is returned when a resample target has no usable rows.
	ErrEmptySeries = errors.New("timeseries: empty series")
	// ErrInvalidCadence is returned when a non-positive cadence is supplied.
	ErrInvalidCadence = errors.New("timeseries: invalid cadence")
)
