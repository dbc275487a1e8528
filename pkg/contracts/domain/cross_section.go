package domain

import "time"

// DailyCrossSection holds the cross-sectional statistics of all defined
// equity returns on one trade date
type DailyCrossSection struct {
	Date         time.Time `json:"date"`
	N            int       `json:"n"`
	MarketReturn float64   `json:"market_return"`
	CSAD         float64   `json:"csad"`
	CSSD         float64   `json:"cssd"`
}

// SkipReason explains why a trade date produced no output row
type SkipReason string

const (
	SkipNoReturns      SkipReason = "no_returns"
	SkipDegenerate     SkipReason = "degenerate_cross_section"
	SkipNoCrossSection SkipReason = "no_cross_section"
)

// SkippedDate records a trade date that was dropped from the dataset
type SkippedDate struct {
	Date   time.Time  `json:"date"`
	Reason SkipReason `json:"reason"`
	N      int        `json:"n"`
}
