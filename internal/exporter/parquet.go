package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// parquetParallelism is the writer's marshalling goroutine count
const parquetParallelism = 2

// ParquetSchema returns the CSV-writer schema for the dataset columns
func ParquetSchema(ds domain.Dataset) []string {
	cols := ds.Columns()
	md := make([]string, len(cols))
	md[0] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=REQUIRED", cols[0])
	for i, c := range cols[1:] {
		md[i+1] = fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=OPTIONAL", c)
	}
	return md
}

// WriteParquet writes ds as a snappy-compressed parquet file. Undefined
// values are written as nulls.
func (w *Writer) WriteParquet(path string, ds domain.Dataset) (string, error) {
	fullPath := w.ResolvePath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := fullPath + ".tmp"
	fw, err := local.NewLocalFileWriter(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create parquet file: %w", err)
	}

	pw, err := writer.NewCSVWriter(ParquetSchema(ds), fw, parquetParallelism)
	if err != nil {
		fw.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, row := range ds.Rows {
		if err := pw.Write(parquetRecord(row, len(ds.SubIndicatorNames))); err != nil {
			pw.WriteStop()
			fw.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("write parquet row %d: %w", i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("finalize parquet: %w", err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close parquet file: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move %s into place: %w", fullPath, err)
	}
	return fullPath, nil
}

func parquetRecord(row domain.SpecificationRow, nSubs int) []interface{} {
	rec := make([]interface{}, 0, 8+nSubs)
	rec = append(rec,
		formatDate(row.Date),
		nullable(row.MarketReturn),
		nullable(row.CSAD),
		nullable(row.CSSD),
		nullable(row.StringencyIndex),
	)
	for j := 0; j < nSubs; j++ {
		v := 0.0
		if j < len(row.SubIndicators) {
			v = row.SubIndicators[j]
		}
		rec = append(rec, nullable(v))
	}
	return append(rec,
		nullable(row.PopulationVaccinated),
		nullable(row.RollingDeaths),
		nullable(row.Cases),
	)
}

// nullable maps undefined values to a parquet null
func nullable(v float64) interface{} {
	if !domain.IsDefined(v) {
		return nil
	}
	return v
}
