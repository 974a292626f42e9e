package collector

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wan300/jiaotong/internal/config"
	"github.com/wan300/jiaotong/internal/domain"
	"github.com/wan300/jiaotong/internal/observability"
)

// TrafficTask captures one road-traffic snapshot per configured target area.
// Areas are independent: a failure in one area is logged and recorded, and
// the remaining areas are still queried.
type TrafficTask struct {
	provider Provider
	store    Store
	areas    []domain.TargetArea
	logger   *slog.Logger
	metrics  *observability.Metrics
}

func NewTrafficTask(provider Provider, store Store, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *TrafficTask {
	return &TrafficTask{
		provider: provider,
		store:    store,
		areas:    cfg.TargetAreas,
		logger:   logger.With("task", "traffic"),
		metrics:  metrics,
	}
}

func (t *TrafficTask) Name() string { return "traffic" }

func (t *TrafficTask) Run(ctx context.Context) {
	timer := t.metrics.TaskTimer("traffic")
	defer timer.ObserveDuration()

	var appended, skipped, failed int
	for _, area := range t.areas {
		if ctx.Err() != nil {
			return
		}
		ok, err := t.collectArea(ctx, area)
		switch {
		case err != nil:
			failed++
			t.logger.Error("area collection failed",
				"district", area.District, "error", err)
		case ok:
			appended++
		default:
			skipped++
		}
	}

	outcome := outcomeOK
	if failed > 0 {
		outcome = outcomePartial
	}
	t.metrics.TaskRuns.WithLabelValues("traffic", outcome).Inc()
	t.logger.Info("traffic run complete",
		"appended", appended, "skipped", skipped, "failed", failed)
}

// collectArea returns (false, nil) when the provider had no usable traffic
// data for the area. That is routine off-peak behavior, not an error.
func (t *TrafficTask) collectArea(ctx context.Context, area domain.TargetArea) (bool, error) {
	info, err := t.provider.TrafficStatus(ctx, area.Rectangle)
	if errors.Is(err, domain.ErrProviderStatus) {
		t.skipArea(area, "provider reported no data")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info == nil || len(info.Roads) == 0 {
		t.skipArea(area, "no road data in response")
		return false, nil
	}

	snapshot, err := domain.NormalizeTraffic(area, *info)
	if err != nil {
		t.metrics.RecordsDropped.WithLabelValues("traffic").Inc()
		return false, err
	}
	if err := t.store.AppendTraffic(ctx, snapshot); err != nil {
		return false, err
	}
	t.metrics.SnapshotsAppended.WithLabelValues("traffic").Inc()
	return true, nil
}

func (t *TrafficTask) skipArea(area domain.TargetArea, reason string) {
	t.metrics.AreasSkipped.Inc()
	t.logger.Info("skipping area", "district", area.District, "reason", reason)
}
