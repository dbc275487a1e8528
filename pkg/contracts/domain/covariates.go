package domain

import "time"

// PolicyObservation is one country-day of the policy stringency feed.
// StringencyIndex is rescaled to 0-1. Missing source values are 0.
type PolicyObservation struct {
	Date                 time.Time          `json:"date"`
	StringencyIndex      float64            `json:"stringency_index"`
	SubIndicators        map[string]float64 `json:"sub_indicators"`
	PopulationVaccinated float64            `json:"population_vaccinated"`
}

// SubIndicator returns the named indicator, 0 when absent
func (p PolicyObservation) SubIndicator(name string) float64 {
	if p.SubIndicators == nil {
		return 0
	}
	return p.SubIndicators[name]
}

// EpidemiologicalObservation is one country-day of the case/death feed.
// RollingDeaths is the trailing 7-day mean of Deaths and is NaN for the
// first six days of the series.
type EpidemiologicalObservation struct {
	Date          time.Time `json:"date"`
	Deaths        float64   `json:"deaths"`
	RollingDeaths float64   `json:"rolling_deaths"`
	Cases         float64   `json:"cases"`
}
