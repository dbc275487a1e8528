package equity

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SLBlundell/Economics-Dissertation/internal/operations"
	"github.com/SLBlundell/Economics-Dissertation/pkg/contracts/domain"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeFeed serves one close per calendar day per code, close = day of year
type fakeFeed struct {
	mu       sync.Mutex
	requests []request
	fail     int
	status   int
	code     int
}

func (f *fakeFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	failing := f.fail > 0
	if failing {
		f.fail--
	}
	f.mu.Unlock()

	if failing && f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if failing && f.code != 0 {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": f.code, "msg": "quota"})
		return
	}
	if req.Token != "secret" {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 2002, "msg": "bad token"})
		return
	}

	start, _ := time.Parse(feedDateLayout, req.Params["start_date"])
	end, _ := time.Parse(feedDateLayout, req.Params["end_date"])

	var items [][]interface{}
	// Feed returns newest first
	for d := end; !d.Before(start); d = d.AddDate(0, 0, -1) {
		var closeVal interface{} = float64(d.YearDay())
		if d.YearDay() == 10 {
			closeVal = nil
		}
		items = append(items, []interface{}{req.Params["ts_code"], d.Format(feedDateLayout), closeVal})
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code": 0,
		"msg":  "",
		"data": map[string]interface{}{
			"fields": []string{"ts_code", "trade_date", "close"},
			"items":  items,
		},
	})
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		BaseURL: url,
		Token:   "secret",
		RPS:     1000,
		Burst:   10,
		Retry: operations.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
			Multiplier:   2,
		},
	}, nil, quiet())
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "http://localhost"}, nil, quiet())
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestFetchDaily(t *testing.T) {
	feed := &fakeFeed{}
	srv := httptest.NewServer(feed)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	obs, err := c.FetchDaily(context.Background(), "600000.SH", Window{Start: jan(8), End: jan(12)})
	require.NoError(t, err)

	require.Len(t, obs, 5)
	assert.Equal(t, jan(8), obs[0].TradeDate, "sorted ascending")
	assert.Equal(t, "600000.SH", obs[0].Code)
	assert.Equal(t, 8.0, obs[0].Close)
	assert.True(t, math.IsNaN(obs[2].Close), "null close is undefined")

	require.Len(t, feed.requests, 1)
	req := feed.requests[0]
	assert.Equal(t, "daily", req.APIName)
	assert.Equal(t, "ts_code,trade_date,close", req.Fields)
	assert.Equal(t, "20200108", req.Params["start_date"])
	assert.Equal(t, "20200112", req.Params["end_date"])
}

func TestFetchRangeMatchesSingleRequest(t *testing.T) {
	feed := &fakeFeed{}
	srv := httptest.NewServer(feed)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	day40 := jan(1).AddDate(0, 0, 39)
	inst := []domain.Instrument{{Code: "1", Exchange: domain.ExchangeShenzhen}}

	windowed, err := c.FetchRange(context.Background(), inst, jan(1), day40, DefaultWindowDays, DefaultStrideDays)
	require.NoError(t, err)
	assert.Len(t, feed.requests, 2)

	single, err := c.FetchDaily(context.Background(), "000001.SZ", Window{Start: jan(1), End: day40})
	require.NoError(t, err)

	require.Len(t, windowed, 40)
	require.Len(t, single, 40)
	for i := range single {
		assert.Equal(t, single[i].TradeDate, windowed[i].TradeDate)
		assert.Equal(t, single[i].Code, windowed[i].Code)
		if !math.IsNaN(single[i].Close) {
			assert.Equal(t, single[i].Close, windowed[i].Close)
		}
	}
}

func TestFetchRangeOrdersByCode(t *testing.T) {
	srv := httptest.NewServer(&fakeFeed{})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	inst := []domain.Instrument{
		{Code: "600000", Exchange: domain.ExchangeShanghai},
		{Code: "000001", Exchange: domain.ExchangeShenzhen},
	}

	obs, err := c.FetchRange(context.Background(), inst, jan(1), jan(30), DefaultWindowDays, DefaultStrideDays)
	require.NoError(t, err)
	require.Len(t, obs, 60)
	assert.Equal(t, "000001.SZ", obs[0].Code)
	assert.Equal(t, jan(30), obs[29].TradeDate)
	assert.Equal(t, "600000.SH", obs[30].Code)
}

func TestFetchDailyRetries(t *testing.T) {
	tests := []struct {
		name     string
		feed     *fakeFeed
		wantErr  bool
		requests int
	}{
		{"server error then success", &fakeFeed{fail: 2, status: http.StatusBadGateway}, false, 3},
		{"rate limit code then success", &fakeFeed{fail: 1, code: codeRateLimited}, false, 2},
		{"persistent server error", &fakeFeed{fail: 10, status: http.StatusInternalServerError}, true, 3},
		{"client error not retried", &fakeFeed{fail: 10, status: http.StatusForbidden}, true, 1},
		{"api error not retried", &fakeFeed{fail: 10, code: 2002}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.feed)
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			_, err := c.FetchDaily(context.Background(), "600000.SH", Window{Start: jan(1), End: jan(2)})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, tt.feed.requests, tt.requests)
		})
	}
}

func TestFetchDailyBadToken(t *testing.T) {
	srv := httptest.NewServer(&fakeFeed{})
	defer srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, Token: "wrong", RPS: 100}, nil, quiet())
	require.NoError(t, err)

	_, err = c.FetchDaily(context.Background(), "600000.SH", Window{Start: jan(1), End: jan(2)})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 2002, apiErr.Code)
}

func TestCloseValue(t *testing.T) {
	assert.Equal(t, 12.5, closeValue(12.5))
	assert.Equal(t, 3.0, closeValue("3"))
	assert.True(t, math.IsNaN(closeValue(nil)))
	assert.True(t, math.IsNaN(closeValue("n/a")))
	assert.True(t, math.IsNaN(closeValue(true)))
}
