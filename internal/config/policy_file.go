package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"energy-surplus/internal/ingestion/entsoe"
	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

// PolicyFile is the yaml document holding the data-quality policy and the
// fetch regions. Absent sections keep their defaults; an explicit empty list
// replaces them.
type PolicyFile struct {
	Policy struct {
		AdmittedTypes *[]string `yaml:"admitted_types"`
		Exclusions    *[]string `yaml:"exclusions"`
	} `yaml:"policy"`
	Regions *[]entsoe.Region `yaml:"regions"`
}

// ReadPolicyFile parses a policy file.
func ReadPolicyFile(path string) (PolicyFile, error) {
	var file PolicyFile
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return file, nil
}

// Apply overrides the policy and regions of cfg.
func (f PolicyFile) Apply(cfg *Config) error {
	if f.Policy.AdmittedTypes != nil {
		admitted := make([]timeseries.EnergyType, 0, len(*f.Policy.AdmittedTypes))
		for _, value := range *f.Policy.AdmittedTypes {
			admitted = append(admitted, timeseries.EnergyType(value))
		}
		cfg.Policy.AdmittedTypes = admitted
	}
	if f.Policy.Exclusions != nil {
		exclusions := make([]surplus.SeriesKey, 0, len(*f.Policy.Exclusions))
		for _, value := range *f.Policy.Exclusions {
			key, err := surplus.ParseSeriesKey(value)
			if err != nil {
				return fmt.Errorf("config: exclusions: %w", err)
			}
			exclusions = append(exclusions, key)
		}
		cfg.Policy.Exclusions = exclusions
	}
	if f.Regions != nil {
		cfg.Regions = append([]entsoe.Region(nil), (*f.Regions)...)
	}
	return nil
}
