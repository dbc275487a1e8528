package crosssection

import (
	"errors"
	"fmt"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

var (
	// ErrNoReturns means no equity had a defined return on the date
	ErrNoReturns = errors.New("no defined returns")
	// ErrDegenerateCrossSection means a single return was defined, so the
	// sample standard deviation has a zero denominator
	ErrDegenerateCrossSection = errors.New("degenerate cross-section: cssd needs at least two returns")
)

// DateError ties a cross-section failure to its trade date
type DateError struct {
	Date time.Time
	N    int
	Err  error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%s (n=%d): %v", e.Date.Format(domain.DateLayout), e.N, e.Err)
}

func (e *DateError) Unwrap() error {
	return e.Err
}

// Reason maps the failure onto the reason recorded for the skipped date
func (e *DateError) Reason() domain.SkipReason {
	if errors.Is(e.Err, ErrDegenerateCrossSection) {
		return domain.SkipDegenerate
	}
	return domain.SkipNoReturns
}
