package surplus

import "errors"

var (
	// ErrNoAdmittedGeneration is returned when a country has no generation sub-series left after filtering.
	ErrNoAdmittedGeneration = errors.New("surplus: no admitted generation")
	// ErrIncompleteGeneration is returned when an admitted generation leg could not be normalized.
	ErrIncompleteGeneration = errors.New("surplus: incomplete generation")
	// ErrSeriesExcluded marks a sub-series dropped by the exclusion list.
	ErrSeriesExcluded = errors.New("surplus: series excluded by policy")
	// ErrNoSurplusCoverage is returned when generation and load share no hour.
	ErrNoSurplusCoverage = errors.New("surplus: no surplus coverage")
	// ErrNoLoad is returned when a country has generation but no load series.
	ErrNoLoad = errors.New("surplus: no load series")
	// ErrNoCountries is returned when the batch has no countries at all.
	ErrNoCountries = errors.New("surplus: no countries supplied")
	// ErrInvalidSeriesKey is returned when a country or energy type is empty.
	ErrInvalidSeriesKey = errors.New("surplus: invalid series key")

	// ErrNilRun is returned when a nil run is persisted.
	ErrNilRun = errors.New("surplus: nil run")
	// ErrEmptyRunID is returned when a run has no id.
	ErrEmptyRunID = errors.New("surplus: empty run id")
	// ErrRunNotFound is returned when no run matches.
	ErrRunNotFound = errors.New("surplus: run not found")
	// ErrRunInProgress is returned when a run is triggered while another one is running.
	ErrRunInProgress = errors.New("surplus: run already in progress")
)
