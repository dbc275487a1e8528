package exporter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/SLBlundell/Economics-Dissertation/internal/config"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Writer exports tables below the configured reports directory
type Writer struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewWriter creates a writer. paths may be nil, in which case relative
// paths resolve against the working directory.
func NewWriter(paths *config.Paths, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{paths: paths, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write serialises ds to path in format and returns the resolved path
func (w *Writer) Write(ctx context.Context, path, format string, ds domain.Dataset) (string, error) {
	start := time.Now()

	var (
		out string
		err error
	)
	switch strings.ToLower(format) {
	case "", FormatCSV:
		out, err = w.WriteCSV(path, Table(ds), WriteOptions{})
	case FormatParquet:
		out, err = w.WriteParquet(path, ds)
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return "", err
	}

	w.logger.InfoContext(ctx, "dataset written",
		slog.String("path", out),
		slog.String("format", format),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("columns", len(ds.Columns())),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// WriteCSV writes df with a header row. The file is replaced atomically.
func (w *Writer) WriteCSV(path string, df dataframe.DataFrame, options WriteOptions) (string, error) {
	if df.Err != nil {
		return "", fmt.Errorf("table: %w", df.Err)
	}

	fullPath := w.ResolvePath(path)
	var buf bytes.Buffer
	if options.BOMPrefix {
		buf.Write([]byte{0xEF, 0xBB, 0xBF})
	}
	if err := df.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("failed to encode csv: %w", err)
	}

	if err := writeAtomic(fullPath, buf.Bytes()); err != nil {
		return "", err
	}
	return fullPath, nil
}

// ReadCSV reads a dataset written by WriteCSV. Sub-indicator columns are
// the ones between stringency_index and population_vaccinated.
func ReadCSV(path string) (domain.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return domain.Dataset{}, fmt.Errorf("parse dataset: %w", df.Err)
	}

	names := df.Names()
	fixedHead := []string{"date", "market_return", "csad", "cssd", "stringency_index"}
	fixedTail := []string{"population_vaccinated", "rolling_deaths", "cases"}
	if len(names) < len(fixedHead)+len(fixedTail) {
		return domain.Dataset{}, fmt.Errorf("dataset has %d columns, want at least %d", len(names), len(fixedHead)+len(fixedTail))
	}
	for i, n := range fixedHead {
		if names[i] != n {
			return domain.Dataset{}, fmt.Errorf("column %d is %q, want %q", i, names[i], n)
		}
	}
	tailStart := len(names) - len(fixedTail)
	for i, n := range fixedTail {
		if names[tailStart+i] != n {
			return domain.Dataset{}, fmt.Errorf("column %d is %q, want %q", tailStart+i, names[tailStart+i], n)
		}
	}

	ds := domain.Dataset{SubIndicatorNames: append([]string(nil), names[len(fixedHead):tailStart]...)}

	cols := make([][]string, len(names))
	for i, n := range names {
		cols[i] = df.Col(n).Records()
	}

	ds.Rows = make([]domain.SpecificationRow, df.Nrow())
	for r := range ds.Rows {
		date, err := time.Parse(domain.DateLayout, cols[0][r])
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("row %d: %w", r+1, err)
		}

		vals := make([]float64, len(names))
		for c := 1; c < len(names); c++ {
			v, err := parseFloat(cols[c][r])
			if err != nil {
				return domain.Dataset{}, fmt.Errorf("row %d column %s: %w", r+1, names[c], err)
			}
			vals[c] = v
		}

		ds.Rows[r] = domain.SpecificationRow{
			Date:                 date,
			MarketReturn:         vals[1],
			CSAD:                 vals[2],
			CSSD:                 vals[3],
			StringencyIndex:      vals[4],
			SubIndicators:        append([]float64{}, vals[len(fixedHead):tailStart]...),
			PopulationVaccinated: vals[tailStart],
			RollingDeaths:        vals[tailStart+1],
			Cases:                vals[tailStart+2],
		}
	}

	return ds, nil
}

// writeAtomic writes data next to path and renames it into place
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// ResolvePath returns where a write to path lands
func (w *Writer) ResolvePath(path string) string {
	// Absolute paths and paths with a directory are used as-is
	if filepath.IsAbs(path) || filepath.Dir(path) != "." || w.paths == nil {
		return path
	}
	// Bare file names go to the reports directory
	return w.paths.GetReportPath(path)
}
