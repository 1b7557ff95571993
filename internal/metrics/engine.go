package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/takuto-ai/takuto/internal/model"
	"github.com/takuto-ai/takuto/internal/telemetry"
)

// RecordStore is the query contract the engine needs from the record store.
// All methods are read-only; the engine never mutates or deletes records.
type RecordStore interface {
	QueryDurations(ctx context.Context, projectID string, start, end time.Time) ([]model.DurationRecord, error)
	QueryUtilization(ctx context.Context, projectID string, start, end time.Time) ([]model.UtilizationRecord, error)
	LatestRisks(ctx context.Context, projectID string) ([]model.RiskRecord, error)
}

// ResourceEfficiency is the average efficiency observed for one resource type.
type ResourceEfficiency struct {
	ResourceType  string  `json:"resource_type"`
	AvgEfficiency float64 `json:"avg_efficiency"`
	Samples       int     `json:"samples"`
}

// Engine computes derived metric bundles from stored records. Each call
// operates on its own snapshot of queried records, so concurrent queries
// for different projects or windows need no coordination.
type Engine struct {
	store  RecordStore
	logger *slog.Logger

	computeDuration metric.Float64Histogram
}

// NewEngine creates a metrics engine over the given store.
func NewEngine(store RecordStore, logger *slog.Logger) *Engine {
	meter := telemetry.Meter("takuto/metrics")
	computeDur, _ := meter.Float64Histogram("takuto.metrics.compute.duration",
		metric.WithDescription("Time to compute a derived metrics bundle (ms)"),
		metric.WithUnit("ms"),
	)
	return &Engine{store: store, logger: logger, computeDuration: computeDur}
}

// Compute queries the project's duration records for the window and derives
// the full bundle. An empty window is not an error: the bundle carries the
// documented zero/sentinel values.
func (e *Engine) Compute(ctx context.Context, projectID string, start, end time.Time) (Bundle, error) {
	began := time.Now()
	records, err := e.store.QueryDurations(ctx, projectID, start, end)
	if err != nil {
		return Bundle{}, fmt.Errorf("metrics: query durations: %w", err)
	}

	bundle := Compute(records)
	e.computeDuration.Record(ctx, float64(time.Since(began).Milliseconds()))
	e.logger.Debug("metrics bundle computed",
		"project_id", projectID,
		"records", len(records),
		"bottlenecks", len(bundle.Bottlenecks),
	)
	return bundle, nil
}

// ResourceEfficiencies averages utilization efficiency per resource type for
// the window, in first-seen order.
func (e *Engine) ResourceEfficiencies(ctx context.Context, projectID string, start, end time.Time) ([]ResourceEfficiency, error) {
	records, err := e.store.QueryUtilization(ctx, projectID, start, end)
	if err != nil {
		return nil, fmt.Errorf("metrics: query utilization: %w", err)
	}

	order := []string{}
	totals := map[string]*ResourceEfficiency{}
	for _, r := range records {
		agg, ok := totals[r.ResourceType]
		if !ok {
			agg = &ResourceEfficiency{ResourceType: r.ResourceType}
			totals[r.ResourceType] = agg
			order = append(order, r.ResourceType)
		}
		agg.AvgEfficiency += r.Efficiency
		agg.Samples++
	}

	out := make([]ResourceEfficiency, 0, len(order))
	for _, rt := range order {
		agg := totals[rt]
		agg.AvgEfficiency /= float64(agg.Samples)
		out = append(out, *agg)
	}
	return out, nil
}

// RiskMatrix returns the project's current risk snapshot. A project with no
// recorded risks yields an empty slice, not an error.
func (e *Engine) RiskMatrix(ctx context.Context, projectID string) ([]model.RiskRecord, error) {
	risks, err := e.store.LatestRisks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("metrics: latest risks: %w", err)
	}
	if risks == nil {
		risks = []model.RiskRecord{}
	}
	return risks, nil
}
