package exporter

import (
	"strconv"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// formatFloat writes the shortest representation that parses back to f.
// Undefined values are written as an empty cell.
func formatFloat(f float64) string {
	if !domain.IsDefined(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatDate formats a date in the table layout
func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

// parseFloat reads a cell written by formatFloat; empty and NA cells are NaN
func parseFloat(s string) (float64, error) {
	switch s {
	case "", "NaN", "NA":
		return domain.Undefined(), nil
	}
	return strconv.ParseFloat(s, 64)
}
