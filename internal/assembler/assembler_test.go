package assembler

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SLBlundell/Economics-Dissertation/internal/crosssection"
	"github.com/SLBlundell/Economics-Dissertation/internal/returns"
	"github.com/SLBlundell/Economics-Dissertation/internal/shared/testutil"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

func d(day int) time.Time {
	return time.Date(2020, 4, day, 0, 0, 0, 0, time.UTC)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type policyMap map[time.Time]domain.PolicyObservation

func (m policyMap) Policy(date time.Time) (domain.PolicyObservation, bool) {
	p, ok := m[date]
	return p, ok
}

type epidemicMap map[time.Time]domain.EpidemiologicalObservation

func (m epidemicMap) Epidemic(date time.Time) (domain.EpidemiologicalObservation, bool) {
	e, ok := m[date]
	return e, ok
}

// pipeline runs the real return and cross-section steps on closes
func pipeline(t *testing.T, closes map[string][]float64, days []time.Time) Input {
	t.Helper()

	var obs []domain.EquityObservation
	for code, series := range closes {
		for i, c := range series {
			obs = append(obs, domain.EquityObservation{Code: code, TradeDate: days[i], Close: c})
		}
	}

	rets := returns.Calculate(obs, days[0])
	sections, skipped, err := crosssection.AggregateAll(rets)
	require.NoError(t, err)

	return Input{Returns: rets, Sections: sections, Skipped: skipped}
}

func TestAssemble(t *testing.T) {
	days := []time.Time{d(1), d(2), d(3)}
	in := pipeline(t, map[string][]float64{
		"A": {10, 11, 12},
		"B": {20, 19, 21},
		"C": {5, 5, 5.5},
	}, days)

	policy := policyMap{
		d(2): {Date: d(2), StringencyIndex: 0.81, PopulationVaccinated: 1.5,
			SubIndicators: map[string]float64{"C1M": 3, "C6M": 2}},
		d(3): {Date: d(3), StringencyIndex: 0.79, SubIndicators: map[string]float64{"C1M": 3}},
	}
	epidemic := epidemicMap{
		d(2): {Date: d(2), Deaths: 10, RollingDeaths: math.NaN(), Cases: 100},
		d(3): {Date: d(3), Deaths: 12, RollingDeaths: 11.5, Cases: 90},
	}

	a := New(policy, epidemic, Options{SubIndicators: []string{"C1M", "C6M"}, Logger: quietLogger()})
	ds, err := a.Assemble(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"C1M", "C6M"}, ds.SubIndicatorNames)
	require.Len(t, ds.Rows, 2)
	require.Len(t, ds.Skipped, 1)
	assert.Equal(t, d(1), ds.Skipped[0].Date)
	assert.Equal(t, domain.SkipNoReturns, ds.Skipped[0].Reason)

	first := ds.Rows[0]
	assert.Equal(t, d(2), first.Date)
	assert.Equal(t, 0.81, first.StringencyIndex)
	assert.Equal(t, []float64{3, 2}, first.SubIndicators)
	assert.Equal(t, 1.5, first.PopulationVaccinated)
	assert.Equal(t, 0.0, first.RollingDeaths, "undefined rolling deaths default to zero")
	assert.Equal(t, 100.0, first.Cases)

	want, err := crosssection.Aggregate(d(2), []float64{
		100 * math.Log(11.0/10.0), 100 * math.Log(19.0/20.0), 0,
	})
	require.NoError(t, err)
	assert.InDelta(t, want.MarketReturn, first.MarketReturn, 1e-9)
	assert.InDelta(t, want.CSAD, first.CSAD, 1e-9)
	assert.InDelta(t, want.CSSD, first.CSSD, 1e-9)

	second := ds.Rows[1]
	assert.Equal(t, d(3), second.Date)
	assert.Equal(t, []float64{3, 0}, second.SubIndicators, "absent sub-indicator is zero")
	assert.Equal(t, 11.5, second.RollingDeaths)

	assert.Equal(t, d(2), ds.FirstDate())
	assert.Equal(t, d(3), ds.LastDate())
}

func TestAssembleMissingPolicyRow(t *testing.T) {
	in := Input{
		Returns: []domain.EquityReturn{
			{Code: "A", TradeDate: d(6), LogReturn: 1},
			{Code: "B", TradeDate: d(6), LogReturn: 2},
			{Code: "C", TradeDate: d(6), LogReturn: 3},
		},
		Sections: []domain.DailyCrossSection{
			{Date: d(6), N: 3, MarketReturn: 2, CSAD: 2.0 / 3.0, CSSD: 1},
		},
	}

	policy := policyMap{d(7): {Date: d(7), StringencyIndex: 0.5}}
	a := New(policy, nil, Options{SubIndicators: []string{"C1M", "C2M", "H6M"}, Logger: quietLogger()})

	ds, err := a.Assemble(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)

	row := ds.Rows[0]
	assert.Equal(t, 0.0, row.StringencyIndex)
	assert.Equal(t, []float64{0, 0, 0}, row.SubIndicators)
	assert.Equal(t, 0.0, row.PopulationVaccinated)
	assert.Equal(t, 0.0, row.RollingDeaths)
	assert.Equal(t, 0.0, row.Cases)
	assert.Equal(t, 2.0, row.MarketReturn)
}

func TestAssembleOrdering(t *testing.T) {
	// Returns arrive grouped by equity, so dates interleave
	var rets []domain.EquityReturn
	var sections []domain.DailyCrossSection
	for _, code := range []string{"A", "B"} {
		for _, day := range []int{9, 3, 6} {
			rets = append(rets, domain.EquityReturn{Code: code, TradeDate: d(day), LogReturn: float64(day)})
		}
	}
	for _, day := range []int{6, 9, 3} {
		sections = append(sections, domain.DailyCrossSection{Date: d(day), N: 2})
	}

	ds, err := New(nil, nil, Options{Logger: quietLogger()}).Assemble(context.Background(), Input{Returns: rets, Sections: sections})
	require.NoError(t, err)

	require.Len(t, ds.Rows, 3)
	assert.Equal(t, d(3), ds.Rows[0].Date)
	assert.Equal(t, d(6), ds.Rows[1].Date)
	assert.Equal(t, d(9), ds.Rows[2].Date)
	assert.Empty(t, ds.Rows[0].SubIndicators)
}

func TestAssembleStrict(t *testing.T) {
	in := Input{
		Returns: []domain.EquityReturn{
			{Code: "A", TradeDate: d(1), LogReturn: 1},
			{Code: "A", TradeDate: d(2), LogReturn: 1},
			{Code: "B", TradeDate: d(2), LogReturn: 2},
		},
		Sections: []domain.DailyCrossSection{{Date: d(2), N: 2}},
	}

	t.Run("lenient", func(t *testing.T) {
		ds, err := New(nil, nil, Options{Logger: quietLogger()}).Assemble(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, ds.Skipped, 1)
		assert.Equal(t, domain.SkipNoCrossSection, ds.Skipped[0].Reason)
	})

	t.Run("logged", func(t *testing.T) {
		logger, handler := testutil.NewTestLogger(t)
		_, err := New(nil, nil, Options{Logger: logger}).Assemble(context.Background(), in)
		require.NoError(t, err)

		testutil.AssertLogContains(t, handler, slog.LevelWarn, "trade date skipped")
		testutil.AssertLogAttr(t, handler, "reason", string(domain.SkipNoCrossSection))
		testutil.AssertLogAttr(t, handler, "component", "assembler")

		summary := handler.GetRecordsByMessage("dataset assembled")
		require.Len(t, summary, 1)
		assert.Equal(t, int64(1), summary[0].Attrs["skipped"])
		assert.Equal(t, int64(1), summary[0].Attrs["policy_defaulted"])
	})

	t.Run("strict", func(t *testing.T) {
		ds, err := New(nil, nil, Options{Strict: true, Logger: quietLogger()}).Assemble(context.Background(), in)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSkippedDates)
		assert.Contains(t, err.Error(), "2020-04-01")
		assert.Len(t, ds.Rows, 1)
	})
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := Input{Returns: []domain.EquityReturn{{Code: "A", TradeDate: d(1), LogReturn: 1}}}
	_, err := New(nil, nil, Options{Logger: quietLogger()}).Assemble(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookupFuncs(t *testing.T) {
	calls := 0
	p := PolicyFunc(func(date time.Time) (domain.PolicyObservation, bool) {
		calls++
		return domain.PolicyObservation{Date: date, StringencyIndex: 0.3}, true
	})
	e := EpidemicFunc(func(time.Time) (domain.EpidemiologicalObservation, bool) {
		return domain.EpidemiologicalObservation{}, false
	})

	in := Input{
		Returns:  []domain.EquityReturn{{Code: "A", TradeDate: d(1), LogReturn: 1}, {Code: "B", TradeDate: d(1), LogReturn: 3}},
		Sections: []domain.DailyCrossSection{{Date: d(1), N: 2, MarketReturn: 2, CSAD: 1, CSSD: math.Sqrt2}},
	}

	ds, err := New(p, e, Options{Logger: quietLogger()}).Assemble(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0.3, ds.Rows[0].StringencyIndex)
}
