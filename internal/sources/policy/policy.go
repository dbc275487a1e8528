package policy

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
	"golang.org/x/sync/errgroup"

	"github.com/SLBlundell/Economics-Dissertation/internal/sources"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

const (
	sourceName = "policy"
	dateLayout = "20060102"

	colCountry      = "CountryName"
	colJurisdiction = "Jurisdiction"
	colRegion       = "RegionName"
	colDate         = "Date"
	colStringency   = "StringencyIndex_WeightedAverage"
	colVaccinated   = "PopulationVaccinated"

	// nationalJurisdiction marks country-level rows in files that also
	// carry subnational ones
	nationalJurisdiction = "NAT_TOTAL"
	stringencyScale      = 100.0
)

// Index is the policy feed for one country keyed by day
type Index struct {
	byDate map[time.Time]domain.PolicyObservation
	dates  []time.Time
}

// Policy returns the observation of date's calendar day
func (ix *Index) Policy(date time.Time) (domain.PolicyObservation, bool) {
	if ix == nil {
		return domain.PolicyObservation{}, false
	}
	p, ok := ix.byDate[day(date)]
	return p, ok
}

// Len returns the number of days in the index
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.dates)
}

// Dates lists the indexed days ascending
func (ix *Index) Dates() []time.Time {
	out := make([]time.Time, len(ix.dates))
	copy(out, ix.dates)
	return out
}

// Config selects what the loader extracts
type Config struct {
	Country       string
	SubIndicators []string
	// Files maps a year label to a path or URL
	Files map[string]string
	// Parallelism bounds concurrent downloads; 1 or less is sequential
	Parallelism int
}

// Loader reads the annual files into an Index
type Loader struct {
	cfg     Config
	fetcher *sources.Fetcher
	logger  *slog.Logger
}

// NewLoader creates a loader
func NewLoader(cfg Config, fetcher *sources.Fetcher, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger.With(slog.String("source", sourceName)),
	}
}

// Load fetches every configured file and merges them. A day present in
// more than one file keeps the row of the later year label.
func (l *Loader) Load(ctx context.Context) (*Index, error) {
	if len(l.cfg.Files) == 0 {
		return nil, fmt.Errorf("no policy files configured")
	}

	years := make([]string, 0, len(l.cfg.Files))
	for y := range l.cfg.Files {
		years = append(years, y)
	}
	sort.Strings(years)

	parsed := make([][]domain.PolicyObservation, len(years))

	g, gctx := errgroup.WithContext(ctx)
	limit := l.cfg.Parallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, year := range years {
		i, year := i, year
		g.Go(func() error {
			data, err := l.fetcher.Fetch(gctx, sourceName, l.cfg.Files[year])
			if err != nil {
				return fmt.Errorf("policy %s: %w", year, err)
			}
			obs, err := Parse(data, l.cfg.Country, l.cfg.SubIndicators)
			if err != nil {
				return fmt.Errorf("policy %s: %w", year, err)
			}
			l.logger.InfoContext(gctx, "policy file parsed",
				slog.String("year", year),
				slog.String("country", l.cfg.Country),
				slog.Int("days", len(obs)))
			parsed[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := NewIndex(parsed...)
	if ix.Len() == 0 {
		return nil, fmt.Errorf("policy feed has no rows for country %q", l.cfg.Country)
	}
	l.logger.InfoContext(ctx, "policy index loaded",
		slog.Int("days", ix.Len()),
		slog.String("first", ix.dates[0].Format(domain.DateLayout)),
		slog.String("last", ix.dates[len(ix.dates)-1].Format(domain.DateLayout)))
	return ix, nil
}

// NewIndex merges observation sets; later sets win on duplicate days
func NewIndex(sets ...[]domain.PolicyObservation) *Index {
	ix := &Index{byDate: make(map[time.Time]domain.PolicyObservation)}
	for _, set := range sets {
		for _, p := range set {
			d := day(p.Date)
			if _, ok := ix.byDate[d]; !ok {
				ix.dates = append(ix.dates, d)
			}
			p.Date = d
			ix.byDate[d] = p
		}
	}
	sort.Slice(ix.dates, func(i, j int) bool { return ix.dates[i].Before(ix.dates[j]) })
	return ix
}

// Parse extracts one country's national rows from an annual CSV
func Parse(data []byte, country string, subIndicators []string) ([]domain.PolicyObservation, error) {
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read policy csv: %w", df.Err)
	}

	names := df.Names()
	for _, required := range []string{colCountry, colDate} {
		if !hasColumn(names, required) {
			return nil, fmt.Errorf("policy csv lacks column %q", required)
		}
	}

	df = df.Filter(dataframe.F{Colname: colCountry, Comparator: series.Eq, Comparando: country})
	if df.Err != nil {
		return nil, fmt.Errorf("filter policy country: %w", df.Err)
	}
	if df.Nrow() == 0 {
		return nil, nil
	}

	switch {
	case hasColumn(names, colJurisdiction):
		df = df.Filter(dataframe.F{Colname: colJurisdiction, Comparator: series.Eq, Comparando: nationalJurisdiction})
	case hasColumn(names, colRegion):
		df = df.Filter(dataframe.F{Colname: colRegion, Comparator: series.Eq, Comparando: ""})
	}
	if df.Err != nil {
		return nil, fmt.Errorf("filter national rows: %w", df.Err)
	}

	dates := df.Col(colDate).Records()
	stringency := column(df, names, colStringency)
	vaccinated := column(df, names, colVaccinated)

	subCols := make([][]string, len(subIndicators))
	for i, code := range subIndicators {
		subCols[i] = column(df, names, matchIndicator(names, code))
	}

	out := make([]domain.PolicyObservation, 0, len(dates))
	for i, raw := range dates {
		date, err := time.Parse(dateLayout, strings.TrimSpace(raw))
		if err != nil {
			continue
		}

		p := domain.PolicyObservation{
			Date:                 date,
			StringencyIndex:      sources.ZeroIfUndefined(value(stringency, i)) / stringencyScale,
			PopulationVaccinated: sources.ZeroIfUndefined(value(vaccinated, i)),
			SubIndicators:        make(map[string]float64, len(subIndicators)),
		}
		for j, code := range subIndicators {
			p.SubIndicators[code] = sources.ZeroIfUndefined(value(subCols[j], i))
		}
		out = append(out, p)
	}

	return out, nil
}

// matchIndicator finds the column of an indicator code, "" when absent
func matchIndicator(names []string, code string) string {
	for _, n := range names {
		if n == code {
			return n
		}
	}
	prefix := code + "_"
	for _, n := range names {
		if strings.HasPrefix(n, prefix) && !strings.HasSuffix(n, "_Flag") {
			return n
		}
	}
	return ""
}

func column(df dataframe.DataFrame, names []string, name string) []string {
	if name == "" || !hasColumn(names, name) {
		return nil
	}
	return df.Col(name).Records()
}

func value(col []string, i int) float64 {
	if i >= len(col) {
		return domain.Undefined()
	}
	return sources.ParseValue(col[i])
}

func hasColumn(names []string, name string) bool {
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
