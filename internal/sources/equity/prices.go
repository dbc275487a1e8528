package equity

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/internal/returns"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// PriceHeader is the header of local price files and of the price cache
var PriceHeader = []string{"code", "trade_date", "close"}

// ReadPrices loads a local price CSV. trade_date may be YYYY-MM-DD or
// YYYYMMDD. Unparseable closes become NaN; rows with a bad date are
// logged and skipped. The result is ordered by (code, trade date).
func ReadPrices(path string, logger *slog.Logger) ([]domain.EquityObservation, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prices file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read prices header: %w", err)
	}
	codeCol := findColumn(header, []string{"code", "ts_code"})
	dateCol := findColumn(header, []string{"trade_date", "date"})
	closeCol := findColumn(header, []string{"close", "close_price"})
	if codeCol < 0 || dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("prices header %v needs code, trade_date and close", header)
	}

	var (
		out     []domain.EquityObservation
		skipped int
		line    = 1
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read prices line %d: %w", line, err)
		}

		code := cell(rec, codeCol)
		date, err := parseTradeDate(cell(rec, dateCol))
		if code == "" || err != nil {
			skipped++
			logger.Warn("skipping price row",
				slog.Int("line", line),
				slog.String("code", code),
				slog.String("trade_date", cell(rec, dateCol)))
			continue
		}

		out = append(out, domain.EquityObservation{
			Code:      code,
			TradeDate: date,
			Close:     returns.ParseClose(cell(rec, closeCol)),
		})
	}

	SortObservations(out)
	logger.Info("prices loaded",
		slog.String("path", path),
		slog.Int("rows", len(out)),
		slog.Int("skipped", skipped))
	return out, nil
}

// WritePrices writes observations to path in ReadPrices' format,
// creating the parent directory. Undefined closes are written empty.
func WritePrices(path string, obs []domain.EquityObservation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create prices directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create prices file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(PriceHeader); err != nil {
		f.Close()
		return fmt.Errorf("write prices header: %w", err)
	}
	for _, o := range obs {
		closeStr := ""
		if domain.IsDefined(o.Close) {
			closeStr = strconv.FormatFloat(o.Close, 'g', -1, 64)
		}
		if err := w.Write([]string{o.Code, o.TradeDate.Format(domain.DateLayout), closeStr}); err != nil {
			f.Close()
			return fmt.Errorf("write prices row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush prices file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close prices file: %w", err)
	}

	return os.Rename(tmp, path)
}

func parseTradeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "-") {
		return time.Parse(domain.DateLayout, s)
	}
	return time.Parse(feedDateLayout, s)
}
