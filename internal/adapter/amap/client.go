// Package amap implements the AMap v3 web API collaborator: fetch-JSON with
// a bounded per-request timeout, logical-status interpretation, and a
// rate-limited paginated POI search.
package amap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/wan300/jiaotong/internal/config"
	"github.com/wan300/jiaotong/internal/domain"
	"github.com/wan300/jiaotong/internal/observability"
)

// Client talks to the AMap web service API. A single shared limiter spaces
// every outgoing request — pages, areas, and categories alike — so the
// provider never sees a burst regardless of which task is running.
type Client struct {
	key        string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxPages   int
	pageSize   int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an AMap client from the service configuration.
// A zero RequestDelay disables request spacing, which tests rely on.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &Client{
		key:        cfg.AMapKey,
		baseURL:    cfg.AMapBaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(limit, 1),
		maxPages:   cfg.MaxPages,
		pageSize:   cfg.PageSize,
		logger:     logger,
		metrics:    metrics,
	}
}

// SearchPOIs fetches one page of a keyword place search. A provider-side
// failure status wraps domain.ErrProviderStatus; the caller treats it as an
// empty page, not an error.
func (c *Client) SearchPOIs(ctx context.Context, keywords, city string, page int) ([]domain.RawPOI, error) {
	params := url.Values{
		"keywords":  {keywords},
		"city":      {city},
		"output":    {"json"},
		"page_size": {strconv.Itoa(c.pageSize)},
		"page_num":  {strconv.Itoa(page)},
	}
	env, err := c.get(ctx, "place/text", params)
	if err != nil {
		return nil, err
	}
	return env.POIs, nil
}

// EachPOIPage drives a rate-limited paginated search: pages 1..MaxPages in
// ascending order, stopping at the first empty or logically failed page.
// Each non-empty page is handed to fn before the next request is issued, so
// earlier pages survive a later hard failure. A hard error aborts this query
// only and is returned to the caller; fn errors do the same.
func (c *Client) EachPOIPage(ctx context.Context, keywords, city string, fn func(page int, pois []domain.RawPOI) error) error {
	for page := 1; page <= c.maxPages; page++ {
		pois, err := c.SearchPOIs(ctx, keywords, city, page)
		if errors.Is(err, domain.ErrProviderStatus) {
			c.logger.Info("poi search ended by provider status", "keywords", keywords, "page", page)
			return nil
		}
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if len(pois) == 0 {
			c.logger.Info("poi search exhausted", "keywords", keywords, "page", page)
			return nil
		}
		c.metrics.PagesFetched.Inc()
		if err := fn(page, pois); err != nil {
			return err
		}
	}
	return nil
}

// TrafficStatus fetches road conditions for a "lng1,lat1;lng2,lat2"
// rectangle. Returns nil info when the response carries no trafficinfo
// object; a failure status wraps domain.ErrProviderStatus.
func (c *Client) TrafficStatus(ctx context.Context, rectangle string) (*domain.RawTrafficInfo, error) {
	params := url.Values{
		"rectangle": {rectangle},
		"output":    {"json"},
	}
	env, err := c.get(ctx, "traffic/status/rectangle", params)
	if err != nil {
		return nil, err
	}
	return env.TrafficInfo, nil
}

// LiveWeather fetches the live weather observations for a city adcode.
func (c *Client) LiveWeather(ctx context.Context, adcode string) ([]domain.RawLiveWeather, error) {
	params := url.Values{
		"city":   {adcode},
		"output": {"json"},
	}
	env, err := c.get(ctx, "weather/weatherInfo", params)
	if err != nil {
		return nil, err
	}
	return env.Lives, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	params.Set("key", c.key)
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ProviderRequests.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("%w: %s: http %d", domain.ErrTransport, path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		c.metrics.ProviderRequests.WithLabelValues(path, "error").Inc()
		return nil, fmt.Errorf("%w: %s: decode: %v", domain.ErrTransport, path, err)
	}

	if env.Status != "1" {
		c.metrics.ProviderRequests.WithLabelValues(path, "empty").Inc()
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrProviderStatus, env.Info, env.Infocode)
	}

	c.metrics.ProviderRequests.WithLabelValues(path, "success").Inc()
	return &env, nil
}

// AMap API response envelope, shared across endpoints.

type envelope struct {
	Status      string                  `json:"status"`
	Info        string                  `json:"info"`
	Infocode    string                  `json:"infocode"`
	POIs        []domain.RawPOI         `json:"pois"`
	TrafficInfo *domain.RawTrafficInfo  `json:"trafficinfo"`
	Lives       []domain.RawLiveWeather `json:"lives"`
}
