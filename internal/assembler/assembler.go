package assembler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/internal/crosssection"
	"github.com/SLBlundell/Economics-Dissertation/internal/returns"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// ErrSkippedDates is returned in strict mode when a trade date with
// return data could not be emitted
var ErrSkippedDates = errors.New("trade dates missing from dataset")

// Options configures an Assembler
type Options struct {
	// SubIndicators are the policy columns emitted per row, in order
	SubIndicators []string
	// Strict fails the run when any trade date is skipped
	Strict bool
	Logger *slog.Logger
}

// Assembler builds SpecificationRows
type Assembler struct {
	policy   PolicyLookup
	epidemic EpidemicLookup
	subs     []string
	strict   bool
	logger   *slog.Logger
}

// New creates an Assembler. Nil lookups always miss.
func New(policy PolicyLookup, epidemic EpidemicLookup, opts Options) *Assembler {
	if policy == nil {
		policy = noPolicy
	}
	if epidemic == nil {
		epidemic = noEpidemic
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	subs := make([]string, len(opts.SubIndicators))
	copy(subs, opts.SubIndicators)

	return &Assembler{
		policy:   policy,
		epidemic: epidemic,
		subs:     subs,
		strict:   opts.Strict,
		logger:   logger.With(slog.String("component", "assembler")),
	}
}

// Input is what the assembler consumes
type Input struct {
	// Returns decides which trade dates exist
	Returns []domain.EquityReturn
	// Sections are the aggregated cross-sections by date
	Sections []domain.DailyCrossSection
	// Skipped carries the aggregator's reasons for dates without a section
	Skipped []domain.SkippedDate
}

// Assemble emits one row per distinct trade date of in.Returns. The
// dates are derived from in.Returns and sorted ascending here, so the
// order of in.Returns does not matter. Dates without a cross-section are
// skipped and listed in Dataset.Skipped. In strict mode a non-empty skip list also returns
// an error wrapping ErrSkippedDates together with the dataset.
func (a *Assembler) Assemble(ctx context.Context, in Input) (domain.Dataset, error) {
	_, dates := returns.ByDate(in.Returns)
	sections := crosssection.Index(in.Sections)

	reasons := make(map[time.Time]domain.SkippedDate, len(in.Skipped))
	for _, s := range in.Skipped {
		reasons[returns.Day(s.Date)] = s
	}

	ds := domain.Dataset{
		SubIndicatorNames: a.subs,
		Rows:              make([]domain.SpecificationRow, 0, len(dates)),
	}

	policyMisses, epidemicMisses := 0, 0

	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return domain.Dataset{}, fmt.Errorf("assemble cancelled: %w", err)
		}

		cs, ok := sections[d]
		if !ok {
			skip, known := reasons[d]
			if !known {
				skip = domain.SkippedDate{Date: d, Reason: domain.SkipNoCrossSection}
			}
			ds.Skipped = append(ds.Skipped, skip)
			a.logger.WarnContext(ctx, "trade date skipped",
				slog.String("date", d.Format(domain.DateLayout)),
				slog.String("reason", string(skip.Reason)),
				slog.Int("n", skip.N))
			continue
		}

		row := domain.SpecificationRow{
			Date:          d,
			MarketReturn:  cs.MarketReturn,
			CSAD:          cs.CSAD,
			CSSD:          cs.CSSD,
			SubIndicators: make([]float64, len(a.subs)),
		}

		if p, ok := a.policy.Policy(d); ok {
			row.StringencyIndex = zeroIfUndefined(p.StringencyIndex)
			row.PopulationVaccinated = zeroIfUndefined(p.PopulationVaccinated)
			for i, name := range a.subs {
				row.SubIndicators[i] = zeroIfUndefined(p.SubIndicator(name))
			}
		} else {
			policyMisses++
		}

		if e, ok := a.epidemic.Epidemic(d); ok {
			row.RollingDeaths = zeroIfUndefined(e.RollingDeaths)
			row.Cases = zeroIfUndefined(e.Cases)
		} else {
			epidemicMisses++
		}

		ds.Rows = append(ds.Rows, row)
	}

	a.logger.InfoContext(ctx, "dataset assembled",
		slog.Int("trade_dates", len(dates)),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("skipped", len(ds.Skipped)),
		slog.Int("policy_defaulted", policyMisses),
		slog.Int("epidemic_defaulted", epidemicMisses))

	if a.strict && len(ds.Skipped) > 0 {
		return ds, fmt.Errorf("%w: %d of %d (first %s)", ErrSkippedDates,
			len(ds.Skipped), len(dates), ds.Skipped[0].Date.Format(domain.DateLayout))
	}

	return ds, nil
}
