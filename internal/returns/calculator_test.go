package returns

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

func day(d int) time.Time {
	return time.Date(2020, 3, d, 0, 0, 0, 0, time.UTC)
}

func obs(code string, d int, close float64) domain.EquityObservation {
	return domain.EquityObservation{Code: code, TradeDate: day(d), Close: close}
}

func TestCalculate(t *testing.T) {
	input := []domain.EquityObservation{
		obs("600000.SH", 2, 10.0),
		obs("600000.SH", 3, 11.0),
		obs("600000.SH", 4, 9.5),
		obs("000001.SZ", 2, 20.0),
		obs("000001.SZ", 3, 20.0),
	}

	got := Calculate(input, time.Time{})
	require.Len(t, got, 5)

	byKey := make(map[string]float64)
	for _, r := range got {
		byKey[r.Code+r.TradeDate.Format(domain.DateLayout)] = r.LogReturn
	}

	assert.True(t, math.IsNaN(byKey["600000.SH2020-03-02"]), "first observation is undefined")
	assert.True(t, math.IsNaN(byKey["000001.SZ2020-03-02"]), "first observation is undefined")
	assert.InDelta(t, 100*math.Log(11.0/10.0), byKey["600000.SH2020-03-03"], 1e-9)
	assert.InDelta(t, 100*math.Log(9.5/11.0), byKey["600000.SH2020-03-04"], 1e-9)
	assert.InDelta(t, 0.0, byKey["000001.SZ2020-03-03"], 1e-9)
}

func TestCalculateSortsCopy(t *testing.T) {
	input := []domain.EquityObservation{
		obs("B", 3, 4.0),
		obs("A", 3, 2.0),
		obs("B", 2, 2.0),
		obs("A", 2, 1.0),
	}

	got := Calculate(input, time.Time{})

	assert.Equal(t, "B", input[0].Code, "input slice must not be reordered")
	require.Len(t, got, 4)
	assert.Equal(t, "A", got[0].Code)
	assert.Equal(t, day(2), got[0].TradeDate)
	assert.InDelta(t, 100*math.Ln2, got[1].LogReturn, 1e-9)
	assert.InDelta(t, 100*math.Ln2, got[3].LogReturn, 1e-9)
}

func TestCalculateResetDate(t *testing.T) {
	input := []domain.EquityObservation{
		obs("A", 2, 10.0),
		obs("A", 3, 12.0),
		obs("A", 4, 13.0),
		obs("B", 2, 5.0),
		obs("B", 3, 6.0),
	}

	got := Calculate(input, day(3))

	for _, r := range got {
		if r.TradeDate.Equal(day(3)) {
			assert.True(t, math.IsNaN(r.LogReturn), "reset date must be undefined for %s", r.Code)
		}
	}
	assert.InDelta(t, 100*math.Log(13.0/12.0), got[2].LogReturn, 1e-9)
}

func TestCalculateResetDateIgnoresClock(t *testing.T) {
	input := []domain.EquityObservation{
		obs("A", 2, 10.0),
		obs("A", 3, 12.0),
	}

	reset := time.Date(2020, 3, 3, 15, 0, 0, 0, time.UTC)
	got := Calculate(input, reset)

	assert.True(t, math.IsNaN(got[1].LogReturn))
}

func TestCalculateUndefinedClose(t *testing.T) {
	input := []domain.EquityObservation{
		obs("A", 2, 10.0),
		obs("A", 3, math.NaN()),
		obs("A", 4, 11.0),
		obs("A", 5, 0),
		obs("A", 6, 12.0),
	}

	got := Calculate(input, time.Time{})
	require.Len(t, got, 5)

	for i, r := range got {
		assert.True(t, math.IsNaN(r.LogReturn), "row %d should be undefined", i)
	}
}

func TestLogReturn(t *testing.T) {
	tests := []struct {
		name       string
		prev, curr float64
		want       float64
		undefined  bool
	}{
		{"rise", 100, 110, 100 * math.Log(1.1), false},
		{"fall", 110, 100, 100 * math.Log(100.0/110.0), false},
		{"flat", 5, 5, 0, false},
		{"nan prev", math.NaN(), 5, 0, true},
		{"nan curr", 5, math.NaN(), 0, true},
		{"zero prev", 0, 5, 0, true},
		{"negative curr", 5, -1, 0, true},
		{"inf", math.Inf(1), 5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogReturn(tt.prev, tt.curr)
			if tt.undefined {
				assert.True(t, math.IsNaN(got))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseClose(t *testing.T) {
	tests := []struct {
		input     string
		want      float64
		undefined bool
	}{
		{"10.25", 10.25, false},
		{" 7 ", 7, false},
		{"1e2", 100, false},
		{"", 0, true},
		{"NaN", 0, true},
		{"null", 0, true},
		{"--", 0, true},
		{"Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseClose(tt.input)
			if tt.undefined {
				assert.True(t, math.IsNaN(got))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByDate(t *testing.T) {
	rets := []domain.EquityReturn{
		{Code: "A", TradeDate: day(3), LogReturn: 1},
		{Code: "A", TradeDate: day(2), LogReturn: math.NaN()},
		{Code: "B", TradeDate: day(3), LogReturn: 2},
		{Code: "B", TradeDate: time.Date(2020, 3, 2, 9, 30, 0, 0, time.UTC), LogReturn: 3},
	}

	groups, dates := ByDate(rets)

	assert.Equal(t, []time.Time{day(2), day(3)}, dates)
	assert.Len(t, groups[day(2)], 2)
	assert.Equal(t, []float64{1, 2}, groups[day(3)])
}

func TestCalculateDuplicateObservation(t *testing.T) {
	input := []domain.EquityObservation{
		obs("A", 2, 10.0),
		obs("A", 3, 12.0),
		obs("B", 2, 5.0),
		obs("B", 3, 6.0),
		obs("A", 3, 12.5),
	}

	got := Calculate(input, time.Time{})
	require.Len(t, got, 4, "one return per code and date")

	assert.Equal(t, "A", got[1].Code)
	assert.Equal(t, day(3), got[1].TradeDate)
	assert.InDelta(t, 100*math.Log(12.5/10.0), got[1].LogReturn, 1e-9, "last delivered row wins")
}

func TestDedupe(t *testing.T) {
	t.Run("keeps last per code and day", func(t *testing.T) {
		intraday := domain.EquityObservation{Code: "A", TradeDate: time.Date(2020, 3, 3, 15, 0, 0, 0, time.UTC), Close: 3}
		input := []domain.EquityObservation{
			obs("A", 3, 1),
			obs("A", 2, 9),
			intraday,
		}

		kept, dropped := Dedupe(input)

		require.Len(t, kept, 2)
		assert.Equal(t, day(2), kept[0].TradeDate)
		assert.Equal(t, intraday, kept[1])
		require.Len(t, dropped, 1)
		assert.Equal(t, 1.0, dropped[0].Close)
		assert.Equal(t, "A", input[0].Code)
		assert.Equal(t, day(3), input[0].TradeDate, "input slice must not be reordered")
	})

	t.Run("unique input", func(t *testing.T) {
		kept, dropped := Dedupe([]domain.EquityObservation{obs("A", 2, 1), obs("B", 2, 1)})
		assert.Len(t, kept, 2)
		assert.Empty(t, dropped)
	})
}
