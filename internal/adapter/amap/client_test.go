package amap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wan300/jiaotong/internal/domain"
	"github.com/wan300/jiaotong/internal/observability"
)

const testKey = "test-amap-key"

func testClient(baseURL string) *Client {
	return &Client{
		key:        testKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxPages:   10,
		pageSize:   25,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    observability.NewMetricsForTesting(),
	}
}

func writePOIPage(t *testing.T, w http.ResponseWriter, pois ...domain.RawPOI) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"status": "1", "info": "OK", "infocode": "10000", "pois": pois,
	}))
}

func TestClient_SearchPOIs_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/text", r.URL.Path)
		assert.Equal(t, testKey, r.URL.Query().Get("key"))
		assert.Equal(t, "医院|诊所", r.URL.Query().Get("keywords"))
		assert.Equal(t, "25", r.URL.Query().Get("page_size"))
		assert.Equal(t, "2", r.URL.Query().Get("page_num"))

		writePOIPage(t, w, domain.RawPOI{ID: "B0001", Name: "协和医院", Location: "116.41,39.91"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	pois, err := c.SearchPOIs(context.Background(), "医院|诊所", "北京", 2)
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "B0001", pois[0].ID)
}

func TestClient_SearchPOIs_ProviderFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"0","info":"INVALID_USER_KEY","infocode":"10001"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.SearchPOIs(context.Background(), "餐厅", "北京", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderStatus)
	assert.NotErrorIs(t, err, domain.ErrTransport)
}

func TestClient_SearchPOIs_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.SearchPOIs(context.Background(), "餐厅", "北京", 1)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_EachPOIPage_StopsOnEmptyPage(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if n <= 3 {
			writePOIPage(t, w, domain.RawPOI{ID: fmt.Sprintf("B%04d", n), Location: "116.4,39.9"})
			return
		}
		writePOIPage(t, w) // empty page 4
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	var got []domain.RawPOI
	err := c.EachPOIPage(context.Background(), "超市", "北京", func(_ int, pois []domain.RawPOI) error {
		got = append(got, pois...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), requests.Load(), "should issue exactly 4 requests")
	assert.Len(t, got, 3, "pages 1-3 are the union")
}

func TestClient_EachPOIPage_PageCap(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		writePOIPage(t, w, domain.RawPOI{ID: "B0001", Location: "116.4,39.9"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	pages := 0
	err := c.EachPOIPage(context.Background(), "公司", "北京", func(_ int, _ []domain.RawPOI) error {
		pages++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), requests.Load(), "never-empty provider is capped at max pages")
	assert.Equal(t, 10, pages)
}

func TestClient_EachPOIPage_SoftFailureStatusEndsQuery(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) == 1 {
			writePOIPage(t, w, domain.RawPOI{ID: "B0001", Location: "116.4,39.9"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"0","info":"DAILY_QUERY_OVER_LIMIT","infocode":"10003"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	var logs bytes.Buffer
	c.logger = slog.New(slog.NewTextHandler(&logs, nil))

	pages := 0
	err := c.EachPOIPage(context.Background(), "地铁站", "北京", func(_ int, _ []domain.RawPOI) error {
		pages++
		return nil
	})
	require.NoError(t, err, "a logical failure page is a soft stop, not an error")
	assert.Equal(t, 1, pages)
	assert.Contains(t, logs.String(), "poi search ended by provider status",
		"the soft stop must be visible at the default log level")
}

func TestClient_EachPOIPage_HardErrorAbortsQuery(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Add(1) <= 2 {
			writePOIPage(t, w, domain.RawPOI{ID: "B0001", Location: "116.4,39.9"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	pages := 0
	err := c.EachPOIPage(context.Background(), "商场", "北京", func(_ int, _ []domain.RawPOI) error {
		pages++
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, 2, pages, "pages fetched before the failure were already delivered")
}

func TestClient_TrafficStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/traffic/status/rectangle", r.URL.Path)
		assert.Equal(t, "116.354,39.923;116.384,39.893", r.URL.Query().Get("rectangle"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"1","info":"OK","infocode":"10000",
			"trafficinfo":{"description":"整体畅通","evaluation":{"expedite":"81%"},
			"roads":[{"name":"长安街","status":"1"}]}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	info, err := c.TrafficStatus(context.Background(), "116.354,39.923;116.384,39.893")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, domain.FlexString("整体畅通"), info.Description)
	assert.Len(t, info.Roads, 1)
}

func TestClient_TrafficStatus_NoInfoObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"1","info":"OK","infocode":"10000"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	info, err := c.TrafficStatus(context.Background(), "116.0,40.0;116.1,39.9")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestClient_LiveWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather/weatherInfo", r.URL.Path)
		assert.Equal(t, "110000", r.URL.Query().Get("city"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"1","info":"OK","infocode":"10000",
			"lives":[{"city":"北京市","adcode":"110000","weather":"晴",
			"temperature":"27","winddirection":"东南","windpower":"≤3",
			"humidity":"43","reporttime":"2026-03-05 16:00:00"}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	lives, err := c.LiveWeather(context.Background(), "110000")
	require.NoError(t, err)
	require.Len(t, lives, 1)
	assert.Equal(t, "27", lives[0].Temperature)
}

func TestClient_RequestSpacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writePOIPage(t, w, domain.RawPOI{ID: "B0001", Location: "116.4,39.9"})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.limiter = rate.NewLimiter(rate.Every(20*time.Millisecond), 1)
	c.maxPages = 3

	start := time.Now()
	err := c.EachPOIPage(context.Background(), "超市", "北京", func(int, []domain.RawPOI) error { return nil })
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond,
		"three requests at 20ms spacing take at least 40ms")
}
