package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseExchange(t *testing.T) {
	tests := []struct {
		name string
		want Exchange
		ok   bool
	}{
		{"Shanghai Stock Exchange", ExchangeShanghai, true},
		{" SSE ", ExchangeShanghai, true},
		{"上海证券交易所", ExchangeShanghai, true},
		{"sz", ExchangeShenzhen, true},
		{"深交所", ExchangeShenzhen, true},
		{"Hong Kong", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseExchange(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeedCode(t *testing.T) {
	assert.Equal(t, "600000.SH", Instrument{Code: "600000", Exchange: ExchangeShanghai}.FeedCode())
	assert.Equal(t, "000001.SZ", Instrument{Code: "1", Exchange: ExchangeShenzhen}.FeedCode())
	assert.Equal(t, "002594.SZ", Instrument{Code: "002594.sz", Exchange: ExchangeShanghai}.FeedCode())
	assert.Equal(t, "600000", Instrument{Code: "600000"}.FeedCode())
}

func TestDefinedValues(t *testing.T) {
	assert.False(t, IsDefined(Undefined()))
	assert.False(t, IsDefined(math.Inf(1)))
	assert.True(t, IsDefined(0))

	assert.False(t, EquityObservation{Close: 0}.HasClose())
	assert.False(t, EquityObservation{Close: Undefined()}.HasClose())
	assert.True(t, EquityObservation{Close: 10.5}.HasClose())
	assert.False(t, EquityReturn{LogReturn: Undefined()}.Defined())
}

func TestDatasetColumns(t *testing.T) {
	ds := Dataset{SubIndicatorNames: []string{"C1M", "H6M"}}
	assert.Equal(t, []string{
		"date", "market_return", "csad", "cssd", "stringency_index",
		"C1M", "H6M",
		"population_vaccinated", "rolling_deaths", "cases",
	}, ds.Columns())
	assert.True(t, ds.FirstDate().IsZero())

	d1 := time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	ds.Rows = []SpecificationRow{{Date: d1}, {Date: d2}}
	assert.Equal(t, d1, ds.FirstDate())
	assert.Equal(t, d2, ds.LastDate())
}

func TestSubIndicator(t *testing.T) {
	assert.Zero(t, PolicyObservation{}.SubIndicator("C1M"))
	p := PolicyObservation{SubIndicators: map[string]float64{"C1M": 3}}
	assert.Equal(t, 3.0, p.SubIndicator("C1M"))
	assert.Zero(t, p.SubIndicator("C2M"))
}
