package equity

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// Header names accepted for the reference list columns
var (
	codeHeaders     = []string{"code", "ts_code", "symbol", "ticker", "证券代码", "股票代码"}
	nameHeaders     = []string{"name", "company", "证券简称", "股票简称"}
	exchangeHeaders = []string{"exchange", "market", "交易所", "上市地点"}
)

// LoadInstruments reads the reference list of instruments. Files ending
// in .xlsx are read with excelize from sheet (first sheet when empty);
// anything else is read as CSV. Rows with an unknown exchange are logged
// and skipped. Duplicate feed codes are kept once.
func LoadInstruments(path, sheet string, logger *slog.Logger) ([]domain.Instrument, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readSheet(path, sheet)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}

	return parseInstruments(rows, logger)
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open instruments workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("instruments workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instruments file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read instruments csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func parseInstruments(rows [][]string, logger *slog.Logger) ([]domain.Instrument, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("instruments list is empty")
	}

	header := rows[0]
	codeCol := findColumn(header, codeHeaders)
	exchCol := findColumn(header, exchangeHeaders)
	nameCol := findColumn(header, nameHeaders)
	if codeCol < 0 || exchCol < 0 {
		return nil, fmt.Errorf("instruments header %v needs a code and an exchange column", header)
	}

	seen := make(map[string]bool)
	var out []domain.Instrument

	for i, row := range rows[1:] {
		code := cell(row, codeCol)
		if code == "" {
			continue
		}

		exch, ok := domain.ParseExchange(cell(row, exchCol))
		if !ok && strings.Contains(code, ".") {
			// Already suffixed codes carry their exchange
			exch, ok = exchangeFromSuffix(code)
		}
		if !ok {
			logger.Warn("skipping instrument with unknown exchange",
				slog.Int("row", i+2),
				slog.String("code", code),
				slog.String("exchange", cell(row, exchCol)))
			continue
		}

		inst := domain.Instrument{Code: code, Name: cell(row, nameCol), Exchange: exch}
		if seen[inst.FeedCode()] {
			continue
		}
		seen[inst.FeedCode()] = true
		out = append(out, inst)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no usable instruments in reference list")
	}

	logger.Info("instruments loaded", slog.Int("count", len(out)))
	return out, nil
}

func exchangeFromSuffix(code string) (domain.Exchange, bool) {
	switch {
	case strings.HasSuffix(strings.ToUpper(code), ".SH"):
		return domain.ExchangeShanghai, true
	case strings.HasSuffix(strings.ToUpper(code), ".SZ"):
		return domain.ExchangeShenzhen, true
	}
	return "", false
}

func findColumn(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
