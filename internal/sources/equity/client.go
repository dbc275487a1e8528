package equity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/SLBlundell/Economics-Dissertation/internal/infrastructure"
	"github.com/SLBlundell/Economics-Dissertation/internal/operations"
	"github.com/SLBlundell/Economics-Dissertation/internal/returns"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

const (
	sourceName     = "equity"
	feedDateLayout = "20060102"
	dailyAPI       = "daily"
	dailyFields    = "ts_code,trade_date,close"

	// codeRateLimited is the feed's per-minute quota error
	codeRateLimited = 40203
)

// ErrMissingToken is returned when the client is built without a credential
var ErrMissingToken = errors.New("equity feed token is required")

// APIError is a non-zero code in the feed's response envelope
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("equity feed error %d: %s", e.Code, e.Msg)
}

// ClientConfig configures the price feed client
type ClientConfig struct {
	BaseURL string
	// Token is the caller's API credential
	Token   string
	RPS     float64
	Burst   int
	Timeout time.Duration
	Retry   operations.RetryConfig
}

// Client fetches daily closes from the price feed
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewClient creates a feed client. metrics may be nil.
func NewClient(cfg ClientConfig, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("equity feed base url is required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 3
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		metrics: metrics,
		logger:  logger.With(slog.String("source", sourceName)),
	}, nil
}

type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// FetchDaily returns the closes of one instrument inside w, ordered by
// trade date. Transient failures are retried per the retry config.
func (c *Client) FetchDaily(ctx context.Context, feedCode string, w Window) ([]domain.EquityObservation, error) {
	var out []domain.EquityObservation

	err := operations.Retry(ctx, c.cfg.Retry, "equity "+feedCode, func(ctx context.Context, attempt int) error {
		c.metrics.RecordFetch(ctx, sourceName, attempt > 1)

		obs, err := c.fetchOnce(ctx, feedCode, w)
		if err != nil {
			return err
		}
		out = obs
		return nil
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", feedCode, w, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.Before(out[j].TradeDate) })
	return out, nil
}

func (c *Client) fetchOnce(ctx context.Context, feedCode string, w Window) ([]domain.EquityObservation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, operations.NewCancellationError(sourceName, err)
	}

	body, err := json.Marshal(request{
		APIName: dailyAPI,
		Token:   c.cfg.Token,
		Params: map[string]string{
			"ts_code":    feedCode,
			"start_date": w.Start.Format(feedDateLayout),
			"end_date":   w.End.Format(feedDateLayout),
		},
		Fields: dailyFields,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, operations.NewTransportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, operations.NewUpstreamError(sourceName, resp.StatusCode,
			fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet))))
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode equity response: %w", err)
	}

	if payload.Code != 0 {
		apiErr := &APIError{Code: payload.Code, Msg: payload.Msg}
		if payload.Code == codeRateLimited {
			return nil, operations.NewUpstreamError(sourceName, http.StatusTooManyRequests, apiErr)
		}
		return nil, apiErr
	}

	return c.decodeItems(ctx, feedCode, w, payload)
}

func (c *Client) decodeItems(ctx context.Context, feedCode string, w Window, payload response) ([]domain.EquityObservation, error) {
	if payload.Data == nil {
		return nil, nil
	}

	codeIdx, dateIdx, closeIdx := -1, -1, -1
	for i, f := range payload.Data.Fields {
		switch f {
		case "ts_code":
			codeIdx = i
		case "trade_date":
			dateIdx = i
		case "close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("equity response fields %v lack trade_date or close", payload.Data.Fields)
	}

	out := make([]domain.EquityObservation, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		if dateIdx >= len(item) {
			continue
		}
		dateStr, _ := item[dateIdx].(string)
		date, err := time.Parse(feedDateLayout, dateStr)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping row with bad trade date",
				slog.String("code", feedCode),
				slog.Any("trade_date", item[dateIdx]))
			continue
		}
		if !w.Contains(date) {
			continue
		}

		code := feedCode
		if codeIdx >= 0 && codeIdx < len(item) {
			if s, ok := item[codeIdx].(string); ok && s != "" {
				code = s
			}
		}

		var raw interface{}
		if closeIdx < len(item) {
			raw = item[closeIdx]
		}

		out = append(out, domain.EquityObservation{
			Code:      code,
			TradeDate: date,
			Close:     closeValue(raw),
		})
	}
	return out, nil
}

// closeValue coerces a JSON cell to a close price; null and text that is
// not a number become NaN
func closeValue(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		if !domain.IsDefined(x) {
			return domain.Undefined()
		}
		return x
	case string:
		return returns.ParseClose(x)
	default:
		return domain.Undefined()
	}
}

// FetchRange fetches every instrument over [start, end], one window at a
// time, and returns the observations ordered by (code, trade date).
// Requests run sequentially; any failure after retries aborts the range.
func (c *Client) FetchRange(ctx context.Context, instruments []domain.Instrument, start, end time.Time, windowDays, strideDays int) ([]domain.EquityObservation, error) {
	windows := Windows(start, end, windowDays, strideDays)
	if len(windows) == 0 {
		return nil, fmt.Errorf("empty fetch range %s to %s", start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}

	c.logger.InfoContext(ctx, "fetching prices",
		slog.Int("instruments", len(instruments)),
		slog.Int("windows", len(windows)),
		slog.String("start", start.Format(domain.DateLayout)),
		slog.String("end", end.Format(domain.DateLayout)))

	var all []domain.EquityObservation
	for wi, w := range windows {
		before := len(all)
		for _, inst := range instruments {
			obs, err := c.FetchDaily(ctx, inst.FeedCode(), w)
			if err != nil {
				return nil, err
			}
			all = append(all, obs...)
		}
		c.logger.InfoContext(ctx, "window fetched",
			slog.Int("window", wi+1),
			slog.Int("of", len(windows)),
			slog.String("range", w.String()),
			slog.Int("rows", len(all)-before))
	}

	SortObservations(all)
	return all, nil
}

// SortObservations orders observations by (code, trade date) in place
func SortObservations(obs []domain.EquityObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].Code != obs[j].Code {
			return obs[i].Code < obs[j].Code
		}
		return obs[i].TradeDate.Before(obs[j].TradeDate)
	})
}
