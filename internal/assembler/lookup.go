package assembler

import (
	"time"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// PolicyLookup finds the policy observation of a calendar day
type PolicyLookup interface {
	Policy(date time.Time) (domain.PolicyObservation, bool)
}

// EpidemicLookup finds the epidemiological observation of a calendar day
type EpidemicLookup interface {
	Epidemic(date time.Time) (domain.EpidemiologicalObservation, bool)
}

// PolicyFunc adapts a function to PolicyLookup
type PolicyFunc func(date time.Time) (domain.PolicyObservation, bool)

func (f PolicyFunc) Policy(date time.Time) (domain.PolicyObservation, bool) {
	return f(date)
}

// EpidemicFunc adapts a function to EpidemicLookup
type EpidemicFunc func(date time.Time) (domain.EpidemiologicalObservation, bool)

func (f EpidemicFunc) Epidemic(date time.Time) (domain.EpidemiologicalObservation, bool) {
	return f(date)
}

// noPolicy and noEpidemic always miss
var (
	noPolicy   = PolicyFunc(func(time.Time) (domain.PolicyObservation, bool) { return domain.PolicyObservation{}, false })
	noEpidemic = EpidemicFunc(func(time.Time) (domain.EpidemiologicalObservation, bool) {
		return domain.EpidemiologicalObservation{}, false
	})
)

// zeroIfUndefined maps NaN and Inf to 0
func zeroIfUndefined(v float64) float64 {
	if !domain.IsDefined(v) {
		return 0
	}
	return v
}
