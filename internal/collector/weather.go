package collector

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wan300/jiaotong/internal/config"
	"github.com/wan300/jiaotong/internal/domain"
	"github.com/wan300/jiaotong/internal/observability"
)

// WeatherTask appends one live-weather observation for the target city per
// run. The provider returns at most one live record for a district adcode;
// an empty list means no current observation and is not an error.
type WeatherTask struct {
	provider Provider
	store    Store
	adcode   string
	logger   *slog.Logger
	metrics  *observability.Metrics
}

func NewWeatherTask(provider Provider, store Store, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *WeatherTask {
	return &WeatherTask{
		provider: provider,
		store:    store,
		adcode:   cfg.TargetAdcode,
		logger:   logger.With("task", "weather"),
		metrics:  metrics,
	}
}

func (t *WeatherTask) Name() string { return "weather" }

func (t *WeatherTask) Run(ctx context.Context) {
	timer := t.metrics.TaskTimer("weather")
	defer timer.ObserveDuration()

	if err := t.collect(ctx); err != nil {
		t.metrics.TaskRuns.WithLabelValues("weather", outcomePartial).Inc()
		t.logger.Error("weather collection failed", "adcode", t.adcode, "error", err)
		return
	}
	t.metrics.TaskRuns.WithLabelValues("weather", outcomeOK).Inc()
}

func (t *WeatherTask) collect(ctx context.Context) error {
	lives, err := t.provider.LiveWeather(ctx, t.adcode)
	if errors.Is(err, domain.ErrProviderStatus) {
		t.logger.Info("no live weather available", "adcode", t.adcode)
		return nil
	}
	if err != nil {
		return err
	}
	if len(lives) == 0 {
		t.logger.Info("no live weather available", "adcode", t.adcode)
		return nil
	}

	snapshot, err := domain.NormalizeWeather(lives[0])
	if err != nil {
		t.metrics.RecordsDropped.WithLabelValues("weather").Inc()
		return err
	}
	if err := t.store.AppendWeather(ctx, snapshot); err != nil {
		return err
	}
	t.metrics.SnapshotsAppended.WithLabelValues("weather").Inc()
	t.logger.Info("weather snapshot appended",
		"city", snapshot.City, "weather", snapshot.Weather,
		"temperature", snapshot.Temperature)
	return nil
}
