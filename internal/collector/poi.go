package collector

import (
	"context"
	"log/slog"

	"github.com/wan300/jiaotong/internal/config"
	"github.com/wan300/jiaotong/internal/domain"
	"github.com/wan300/jiaotong/internal/observability"
)

// POITask walks the configured POI categories, pages through the place search
// for each, and creates any POI not yet known. Categories are independent: a
// failing category is logged and the remaining ones still run.
type POITask struct {
	provider   Provider
	store      Store
	city       string
	categories []domain.POICategory
	logger     *slog.Logger
	metrics    *observability.Metrics
}

func NewPOITask(provider Provider, store Store, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *POITask {
	return &POITask{
		provider:   provider,
		store:      store,
		city:       cfg.TargetCity,
		categories: cfg.POICategories,
		logger:     logger.With("task", "poi"),
		metrics:    metrics,
	}
}

func (t *POITask) Name() string { return "poi" }

func (t *POITask) Run(ctx context.Context) {
	timer := t.metrics.TaskTimer("poi")
	defer timer.ObserveDuration()

	var created, duplicate, failed int
	for _, cat := range t.categories {
		if ctx.Err() != nil {
			return
		}
		c, d, err := t.collectCategory(ctx, cat)
		created += c
		duplicate += d
		if err != nil {
			failed++
			t.logger.Error("category collection failed",
				"category", cat.Name, "error", err)
		}
	}

	outcome := outcomeOK
	if failed > 0 {
		outcome = outcomePartial
	}
	t.metrics.TaskRuns.WithLabelValues("poi", outcome).Inc()
	t.logger.Info("poi run complete",
		"created", created, "duplicate", duplicate, "failed_categories", failed)
}

func (t *POITask) collectCategory(ctx context.Context, cat domain.POICategory) (created, duplicate int, err error) {
	err = t.provider.EachPOIPage(ctx, cat.Keyword, t.city, func(page int, raws []domain.RawPOI) error {
		for _, raw := range raws {
			poi, nerr := domain.NormalizePOI(raw, cat.Name, t.city)
			if nerr != nil {
				t.metrics.RecordsDropped.WithLabelValues("poi").Inc()
				t.logger.Warn("dropping malformed poi",
					"category", cat.Name, "page", page, "amap_id", raw.ID, "error", nerr)
				continue
			}
			isNew, serr := t.store.CreatePOIIfAbsent(ctx, poi)
			if serr != nil {
				// The store flattens causes, so ask the context itself
				// rather than unwrapping serr.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				t.logger.Error("poi write failed",
					"category", cat.Name, "amap_id", poi.AMapID, "error", serr)
				continue
			}
			if isNew {
				created++
				t.metrics.POIsCreated.Inc()
			} else {
				duplicate++
				t.metrics.POIsDuplicate.Inc()
			}
		}
		return nil
	})
	return created, duplicate, err
}
