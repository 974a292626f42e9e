// Package collector implements the collection tasks: points of interest,
// road-traffic snapshots, and live weather. Each task owns one data kind and
// never lets a page, area, or record failure escape its run.
package collector

import (
	"context"

	"github.com/wan300/jiaotong/internal/domain"
)

// Provider fetches provider-shaped raw data. *amap.Client implements it.
type Provider interface {
	EachPOIPage(ctx context.Context, keywords, city string, fn func(page int, pois []domain.RawPOI) error) error
	TrafficStatus(ctx context.Context, rectangle string) (*domain.RawTrafficInfo, error)
	LiveWeather(ctx context.Context, adcode string) ([]domain.RawLiveWeather, error)
}

// Store persists normalized records. *postgres.Store implements it.
type Store interface {
	CreatePOIIfAbsent(ctx context.Context, poi domain.POI) (created bool, err error)
	AppendTraffic(ctx context.Context, snapshot domain.TrafficSnapshot) error
	AppendWeather(ctx context.Context, snapshot domain.WeatherSnapshot) error
}

// Run outcomes reported to the task_runs metric. A run is "partial" when at
// least one sub-unit failed; the scheduler still sees it complete either way.
const (
	outcomeOK      = "ok"
	outcomePartial = "partial"
)
