package domain

import (
	"math"
	"strings"
	"time"
)

// Exchange identifies the listing venue of an A-share instrument
type Exchange string

const (
	ExchangeShanghai Exchange = "SSE"
	ExchangeShenzhen Exchange = "SZSE"
)

// Suffix returns the feed suffix appended to a bare instrument code
func (e Exchange) Suffix() string {
	switch e {
	case ExchangeShanghai:
		return ".SH"
	case ExchangeShenzhen:
		return ".SZ"
	default:
		return ""
	}
}

// ParseExchange maps a free-text exchange name from the reference list
// onto an Exchange. English names, abbreviations and Chinese names are
// all accepted.
func ParseExchange(name string) (Exchange, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "":
		return "", false
	case strings.Contains(n, "shanghai"), n == "sse", n == "sh", strings.Contains(n, "上海"), strings.Contains(n, "上交所"):
		return ExchangeShanghai, true
	case strings.Contains(n, "shenzhen"), n == "szse", n == "sz", strings.Contains(n, "深圳"), strings.Contains(n, "深交所"):
		return ExchangeShenzhen, true
	default:
		return "", false
	}
}

// Instrument is one entry of the local instrument reference list
type Instrument struct {
	Code     string   `json:"code"`
	Name     string   `json:"name,omitempty"`
	Exchange Exchange `json:"exchange"`
}

// FeedCode returns the code as the price feed expects it, e.g. "600000.SH"
func (i Instrument) FeedCode() string {
	code := strings.TrimSpace(i.Code)
	if strings.Contains(code, ".") {
		return strings.ToUpper(code)
	}
	// Reference lists exported from spreadsheets drop leading zeros
	for len(code) < 6 {
		code = "0" + code
	}
	return code + i.Exchange.Suffix()
}

// EquityObservation is one daily close for one equity.
// Close is NaN when the feed value was missing or not numeric.
type EquityObservation struct {
	Code      string    `json:"code"`
	TradeDate time.Time `json:"trade_date"`
	Close     float64   `json:"close"`
}

// HasClose reports whether the close price is usable for a log return
func (o EquityObservation) HasClose() bool {
	return IsDefined(o.Close) && o.Close > 0
}

// EquityReturn is the daily logarithmic return of one equity, in percent.
// LogReturn is NaN when undefined.
type EquityReturn struct {
	Code      string    `json:"code"`
	TradeDate time.Time `json:"trade_date"`
	LogReturn float64   `json:"log_return"`
}

// Defined reports whether the return carries a value
func (r EquityReturn) Defined() bool {
	return IsDefined(r.LogReturn)
}

// Undefined is the value used for missing numeric fields
func Undefined() float64 {
	return math.NaN()
}

// IsDefined reports whether v is a finite number
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
