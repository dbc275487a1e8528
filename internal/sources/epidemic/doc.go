// Package epidemic loads daily new deaths and new cases for one country
// from wide CSV files, one date column plus one column per location.
//
// Deaths are smoothed into a trailing mean over RollingWindow days. The
// mean is undefined (NaN) until a full window is available and whenever
// the window contains a missing day. Missing case counts are 0.
package epidemic
