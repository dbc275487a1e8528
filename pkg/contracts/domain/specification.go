package domain

import "time"

// DateLayout is the on-disk date format of every table this module writes
const DateLayout = "2006-01-02"

// SpecificationRow is one trade date of the regression dataset
type SpecificationRow struct {
	Date                 time.Time `json:"date"`
	MarketReturn         float64   `json:"market_return"`
	CSAD                 float64   `json:"csad"`
	CSSD                 float64   `json:"cssd"`
	StringencyIndex      float64   `json:"stringency_index"`
	SubIndicators        []float64 `json:"sub_indicators"`
	PopulationVaccinated float64   `json:"population_vaccinated"`
	RollingDeaths        float64   `json:"rolling_deaths"`
	Cases                float64   `json:"cases"`
}

// Dataset is the assembled table plus the dates that could not be emitted.
// SubIndicatorNames gives the column names of SpecificationRow.SubIndicators
// in order.
type Dataset struct {
	SubIndicatorNames []string           `json:"sub_indicator_names"`
	Rows              []SpecificationRow `json:"rows"`
	Skipped           []SkippedDate      `json:"skipped,omitempty"`
}

// Columns returns the output header in file order
func (d Dataset) Columns() []string {
	cols := []string{"date", "market_return", "csad", "cssd", "stringency_index"}
	cols = append(cols, d.SubIndicatorNames...)
	return append(cols, "population_vaccinated", "rolling_deaths", "cases")
}

// FirstDate returns the first row date, zero when empty
func (d Dataset) FirstDate() time.Time {
	if len(d.Rows) == 0 {
		return time.Time{}
	}
	return d.Rows[0].Date
}

// LastDate returns the last row date, zero when empty
func (d Dataset) LastDate() time.Time {
	if len(d.Rows) == 0 {
		return time.Time{}
	}
	return d.Rows[len(d.Rows)-1].Date
}
