// Package crosssection computes the equally weighted market return and
// the two herding dispersion measures for each trade date:
//
//	market_return = mean(r)
//	csad          = mean(|r_i - market_return|)
//	cssd          = sqrt(sum((r_i - market_return)^2) / (N-1))
//
// Undefined returns are excluded before N is counted. Dates with N < 2
// cannot produce a cross-section and are reported instead of zeroed.
package crosssection
