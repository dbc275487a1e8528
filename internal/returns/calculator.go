package returns

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// percent scales log differences to percentage points
const percent = 100.0

// Calculate returns one EquityReturn per (code, trade date). The input is
// deduplicated and ordered on a copy, so the caller's slice is never
// reordered. The result is ordered by (code, trade date).
//
// A zero resetDate disables the reset.
func Calculate(obs []domain.EquityObservation, resetDate time.Time) []domain.EquityReturn {
	sorted, _ := Dedupe(obs)

	reset := !resetDate.IsZero()
	out := make([]domain.EquityReturn, len(sorted))

	for i, o := range sorted {
		r := domain.EquityReturn{
			Code:      o.Code,
			TradeDate: o.TradeDate,
			LogReturn: domain.Undefined(),
		}

		if i > 0 && sorted[i-1].Code == o.Code {
			r.LogReturn = LogReturn(sorted[i-1].Close, o.Close)
		}
		if reset && sameDay(o.TradeDate, resetDate) {
			r.LogReturn = domain.Undefined()
		}

		out[i] = r
	}

	return out
}

// Dedupe orders a copy of obs by (code, trade date) and keeps one
// observation per code and calendar day: the one that came last in obs.
// The replaced observations are returned as dropped, in sorted order.
func Dedupe(obs []domain.EquityObservation) (kept, dropped []domain.EquityObservation) {
	sorted := make([]domain.EquityObservation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Code != sorted[j].Code {
			return sorted[i].Code < sorted[j].Code
		}
		return Day(sorted[i].TradeDate).Before(Day(sorted[j].TradeDate))
	})

	kept = make([]domain.EquityObservation, 0, len(sorted))
	for i, o := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Code == o.Code && sameDay(sorted[i+1].TradeDate, o.TradeDate) {
			dropped = append(dropped, o)
			continue
		}
		kept = append(kept, o)
	}
	return kept, dropped
}

// LogReturn computes 100 * (ln(curr) - ln(prev)). Undefined or
// non-positive inputs yield NaN.
func LogReturn(prev, curr float64) float64 {
	if !positive(prev) || !positive(curr) {
		return domain.Undefined()
	}
	return percent * (math.Log(curr) - math.Log(prev))
}

// ParseClose coerces a feed value to a close price. Empty, "NaN", null
// markers and other non-numeric text become NaN.
func ParseClose(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Undefined()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !domain.IsDefined(v) {
		return domain.Undefined()
	}
	return v
}

// ByDate groups returns by calendar day and lists the days ascending
func ByDate(rets []domain.EquityReturn) (map[time.Time][]float64, []time.Time) {
	groups := make(map[time.Time][]float64)
	var dates []time.Time

	for _, r := range rets {
		d := Day(r.TradeDate)
		if _, ok := groups[d]; !ok {
			dates = append(dates, d)
			groups[d] = nil
		}
		groups[d] = append(groups[d], r.LogReturn)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return groups, dates
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

func positive(v float64) bool {
	return domain.IsDefined(v) && v > 0
}
