// Package returns turns per-equity daily close prices into daily
// logarithmic returns expressed in percent.
//
// A return is undefined (NaN) when either close is missing or not
// positive, for the first observation of every equity, and for every
// equity on the configured reset date that opens the clean sample.
package returns
