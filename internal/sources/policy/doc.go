// Package policy loads the government response stringency feed for one
// country.
//
// The feed is a set of annual CSV files with one row per country (and
// optionally region) and day. Dates are YYYYMMDD. The weighted
// stringency index is published on a 0-100 scale and is stored rescaled
// to 0-1. Sub-indicator columns are matched by code, so "C1M" selects
// "C1M" or "C1M_School closing" but never the "C1M_Flag" column.
// Missing values are 0.
package policy
