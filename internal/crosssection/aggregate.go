package crosssection

import (
	"errors"
	"math"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/internal/returns"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// Aggregate computes the cross-section of one trade date. Undefined
// values are dropped first. It returns a *DateError wrapping
// ErrNoReturns when N = 0 and ErrDegenerateCrossSection when N = 1.
func Aggregate(date time.Time, rets []float64) (domain.DailyCrossSection, error) {
	defined := make([]float64, 0, len(rets))
	for _, r := range rets {
		if domain.IsDefined(r) {
			defined = append(defined, r)
		}
	}

	n := len(defined)
	switch n {
	case 0:
		return domain.DailyCrossSection{}, &DateError{Date: date, N: n, Err: ErrNoReturns}
	case 1:
		return domain.DailyCrossSection{}, &DateError{Date: date, N: n, Err: ErrDegenerateCrossSection}
	}

	mean := 0.0
	for _, r := range defined {
		mean += r
	}
	mean /= float64(n)

	absDev, sqDev := 0.0, 0.0
	for _, r := range defined {
		d := r - mean
		absDev += math.Abs(d)
		sqDev += d * d
	}

	return domain.DailyCrossSection{
		Date:         date,
		N:            n,
		MarketReturn: mean,
		CSAD:         absDev / float64(n),
		CSSD:         math.Sqrt(sqDev / float64(n-1)),
	}, nil
}

// AggregateAll groups returns by trade date and aggregates each date in
// ascending order. Dates that fail are returned as skipped with their
// reason; any other error is returned as is.
func AggregateAll(rets []domain.EquityReturn) ([]domain.DailyCrossSection, []domain.SkippedDate, error) {
	groups, dates := returns.ByDate(rets)

	sections := make([]domain.DailyCrossSection, 0, len(dates))
	var skipped []domain.SkippedDate

	for _, d := range dates {
		cs, err := Aggregate(d, groups[d])
		if err != nil {
			var dateErr *DateError
			if !errors.As(err, &dateErr) {
				return nil, nil, err
			}
			skipped = append(skipped, domain.SkippedDate{
				Date:   d,
				Reason: dateErr.Reason(),
				N:      dateErr.N,
			})
			continue
		}
		sections = append(sections, cs)
	}

	return sections, skipped, nil
}

// Index keys cross-sections by calendar day
func Index(sections []domain.DailyCrossSection) map[time.Time]domain.DailyCrossSection {
	idx := make(map[time.Time]domain.DailyCrossSection, len(sections))
	for _, cs := range sections {
		idx[returns.Day(cs.Date)] = cs
	}
	return idx
}
