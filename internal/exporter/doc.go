// Package exporter writes the assembled dataset.
//
// The dataset is materialised once into a gota DataFrame with one
// string column per output field, then serialised. Two formats are
// supported:
//
// CSV: header row, ISO dates and floats at full precision. Written to a
// temporary file and renamed into place so readers never see a partial
// table.
//
// Parquet: the same columns with a UTF8 date and OPTIONAL DOUBLE values.
//
// Example usage:
//
//	w := exporter.NewWriter(paths, logger)
//	out, err := w.Write(ctx, "specification.csv", exporter.FormatCSV, dataset)
//
//	// Read a written table back
//	ds, err := exporter.ReadCSV(out)
package exporter
