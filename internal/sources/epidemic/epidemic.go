package epidemic

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/SLBlundell/Economics-Dissertation/internal/sources"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

const (
	sourceName = "epidemic"
	colDate    = "date"

	// DefaultRollingWindow is the trailing mean span for deaths
	DefaultRollingWindow = 7
)

// Series is one country's epidemiological feed keyed by day
type Series struct {
	obs    []domain.EpidemiologicalObservation
	byDate map[time.Time]int
}

// Epidemic returns the observation of date's calendar day
func (s *Series) Epidemic(date time.Time) (domain.EpidemiologicalObservation, bool) {
	if s == nil {
		return domain.EpidemiologicalObservation{}, false
	}
	i, ok := s.byDate[day(date)]
	if !ok {
		return domain.EpidemiologicalObservation{}, false
	}
	return s.obs[i], true
}

// Observations returns the series in date order
func (s *Series) Observations() []domain.EpidemiologicalObservation {
	out := make([]domain.EpidemiologicalObservation, len(s.obs))
	copy(out, s.obs)
	return out
}

// Config selects what the loader extracts
type Config struct {
	Country       string
	DeathsSource  string
	CasesSource   string
	RollingWindow int
}

// Loader reads the deaths and cases files into a Series
type Loader struct {
	cfg     Config
	fetcher *sources.Fetcher
	logger  *slog.Logger
}

// NewLoader creates a loader
func NewLoader(cfg Config, fetcher *sources.Fetcher, logger *slog.Logger) *Loader {
	if cfg.RollingWindow < 1 {
		cfg.RollingWindow = DefaultRollingWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger.With(slog.String("source", sourceName)),
	}
}

// Load fetches both files and builds the series
func (l *Loader) Load(ctx context.Context) (*Series, error) {
	deathsData, err := l.fetcher.Fetch(ctx, sourceName, l.cfg.DeathsSource)
	if err != nil {
		return nil, fmt.Errorf("deaths: %w", err)
	}
	deaths, err := ParseColumn(deathsData, l.cfg.Country)
	if err != nil {
		return nil, fmt.Errorf("deaths: %w", err)
	}

	casesData, err := l.fetcher.Fetch(ctx, sourceName, l.cfg.CasesSource)
	if err != nil {
		return nil, fmt.Errorf("cases: %w", err)
	}
	cases, err := ParseColumn(casesData, l.cfg.Country)
	if err != nil {
		return nil, fmt.Errorf("cases: %w", err)
	}

	s := Build(deaths, cases, l.cfg.RollingWindow)
	if len(s.obs) == 0 {
		return nil, fmt.Errorf("epidemic feed has no rows for %q", l.cfg.Country)
	}

	l.logger.InfoContext(ctx, "epidemic series loaded",
		slog.String("country", l.cfg.Country),
		slog.Int("days", len(s.obs)),
		slog.String("first", s.obs[0].Date.Format(domain.DateLayout)),
		slog.String("last", s.obs[len(s.obs)-1].Date.Format(domain.DateLayout)))
	return s, nil
}

// Point is one dated value of a feed column; Value is NaN when missing
type Point struct {
	Date  time.Time
	Value float64
}

// ParseColumn extracts the country column of a wide CSV, ordered by date
func ParseColumn(data []byte, country string) ([]Point, error) {
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read epidemic csv: %w", df.Err)
	}

	names := df.Names()
	if !contains(names, colDate) {
		return nil, fmt.Errorf("epidemic csv lacks column %q", colDate)
	}
	if !contains(names, country) {
		return nil, fmt.Errorf("epidemic csv has no column for %q", country)
	}

	sel := df.Select([]string{colDate, country})
	if sel.Err != nil {
		return nil, fmt.Errorf("select %q: %w", country, sel.Err)
	}

	dates := sel.Col(colDate).Records()
	values := sel.Col(country).Records()

	out := make([]Point, 0, len(dates))
	for i, raw := range dates {
		d, err := time.Parse(domain.DateLayout, strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		out = append(out, Point{Date: d, Value: sources.ParseValue(values[i])})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Build joins deaths and cases on date and computes the rolling mean.
// The series spans the union of both date sets; the rolling window runs
// over the deaths series' own days.
func Build(deaths, cases []Point, window int) *Series {
	if window < 1 {
		window = DefaultRollingWindow
	}

	rolling := RollingMean(deaths, window)

	merged := make(map[time.Time]*domain.EpidemiologicalObservation)
	get := func(d time.Time) *domain.EpidemiologicalObservation {
		d = day(d)
		o, ok := merged[d]
		if !ok {
			o = &domain.EpidemiologicalObservation{
				Date:          d,
				Deaths:        domain.Undefined(),
				RollingDeaths: domain.Undefined(),
			}
			merged[d] = o
		}
		return o
	}

	for i, p := range deaths {
		o := get(p.Date)
		o.Deaths = p.Value
		o.RollingDeaths = rolling[i]
	}
	for _, p := range cases {
		get(p.Date).Cases = sources.ZeroIfUndefined(p.Value)
	}

	s := &Series{
		obs:    make([]domain.EpidemiologicalObservation, 0, len(merged)),
		byDate: make(map[time.Time]int, len(merged)),
	}
	for _, o := range merged {
		s.obs = append(s.obs, *o)
	}
	sort.Slice(s.obs, func(i, j int) bool { return s.obs[i].Date.Before(s.obs[j].Date) })
	for i, o := range s.obs {
		s.byDate[o.Date] = i
	}
	return s
}

// RollingMean returns the trailing mean over window points. Positions
// before the first full window, and windows holding a NaN, are NaN.
func RollingMean(points []Point, window int) []float64 {
	out := make([]float64, len(points))
	for i := range points {
		if i+1 < window {
			out[i] = domain.Undefined()
			continue
		}
		sum := 0.0
		for _, p := range points[i+1-window : i+1] {
			sum += p.Value
		}
		if !domain.IsDefined(sum) {
			out[i] = domain.Undefined()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
