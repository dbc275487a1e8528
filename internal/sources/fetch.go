// Package sources holds what the feed packages share: opening a feed
// location that is either a local path or an http(s) URL, with retry.
package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SLBlundell/Economics-Dissertation/internal/infrastructure"
	"github.com/SLBlundell/Economics-Dissertation/internal/operations"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

// maxFeedBytes bounds a single downloaded feed file
const maxFeedBytes = 512 << 20

// Fetcher reads feed files
type Fetcher struct {
	HTTP    *http.Client
	Retry   operations.RetryConfig
	Metrics *infrastructure.PipelineMetrics
	Logger  *slog.Logger
}

// NewFetcher creates a Fetcher with a client using timeout
func NewFetcher(timeout time.Duration, retry operations.RetryConfig, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		HTTP:    &http.Client{Timeout: timeout},
		Retry:   retry,
		Metrics: metrics,
		Logger:  logger,
	}
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Fetch returns the content at location. source names the feed in logs
// and metrics. Remote downloads are retried on transient failures.
func (f *Fetcher) Fetch(ctx context.Context, source, location string) ([]byte, error) {
	if !IsRemote(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read %s feed: %w", source, err)
		}
		return data, nil
	}

	var data []byte
	err := operations.Retry(ctx, f.Retry, source, func(ctx context.Context, attempt int) error {
		f.Metrics.RecordFetch(ctx, source, attempt > 1)

		body, err := f.download(ctx, source, location)
		if err != nil {
			return err
		}
		data = body
		return nil
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s feed %s: %w", source, location, err)
	}

	f.Logger.InfoContext(ctx, "feed downloaded",
		slog.String("source", source),
		slog.String("url", location),
		slog.Int("bytes", len(data)))
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, source, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, operations.NewTransportError(source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, operations.NewUpstreamError(source, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, operations.NewTransportError(source, err)
	}
	return body, nil
}

// ParseValue coerces a feed cell to a number. Empty cells, NA markers
// and text that is not a number become NaN.
func ParseValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Undefined()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !domain.IsDefined(v) {
		return domain.Undefined()
	}
	return v
}

// ZeroIfUndefined maps NaN to 0, the feeds' default for missing values
func ZeroIfUndefined(v float64) float64 {
	if !domain.IsDefined(v) {
		return 0
	}
	return v
}
