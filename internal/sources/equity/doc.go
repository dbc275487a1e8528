// Package equity loads daily A-share close prices.
//
// Prices come either from a Tushare Pro style JSON API, fetched one
// instrument and one date window at a time because the feed caps the
// size of a request, or from a local CSV with code,trade_date,close
// columns. Instrument codes and exchanges are read from a local
// reference list (xlsx or csv).
package equity
