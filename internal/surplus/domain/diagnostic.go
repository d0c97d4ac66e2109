package surplus

import (
	"errors"

	timeseries "energy-surplus/internal/timeseries/domain"
)

// Stage names the pipeline step a diagnostic originated from.
type Stage string

const (
	StageSource   Stage = "source"
	StageCadence  Stage = "cadence"
	StageResample Stage = "resample"
	StagePolicy   Stage = "policy"
	StageCompose  Stage = "compose"
	StageLoad     Stage = "load"
	StageJoin     Stage = "join"
)

// Diagnostic records why a series or a country was left out of the corpus.
// EnergyType is empty for load and country-level diagnostics.
type Diagnostic struct {
	Country    timeseries.CountryCode `json:"country"`
	EnergyType timeseries.EnergyType  `json:"energy_type,omitempty"`
	Stage      Stage                  `json:"stage"`
	Reason     string                 `json:"reason"`
	Err        error                  `json:"-"`
}

// NewDiagnostic builds a diagnostic from an error.
func NewDiagnostic(country timeseries.CountryCode, energyType timeseries.EnergyType, stage Stage, err error) Diagnostic {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return Diagnostic{Country: country, EnergyType: energyType, Stage: stage, Reason: reason, Err: err}
}

// NormalizeStage maps a normalization error to the step that raised it.
func NormalizeStage(err error) Stage {
	switch {
	case errors.Is(err, timeseries.ErrCadenceUndetectable):
		return StageCadence
	case errors.Is(err, timeseries.ErrEmptySeries), errors.Is(err, timeseries.ErrInvalidCadence):
		return StageResample
	default:
		return StageSource
	}
}

// OmitsCountry reports whether the diagnostic removed a whole country.
func (d Diagnostic) OmitsCountry() bool {
	return d.EnergyType == ""
}
