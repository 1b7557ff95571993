package storage

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/takuto-ai/takuto/internal/model"
)

var (
	seedWorkPackages  = []string{"Foundation", "Framing", "MEP", "Finishes", "Exterior"}
	seedResourceTypes = []string{"Labor", "Equipment", "Materials", "Space"}
	seedRiskTypes     = []string{
		"Weather Delay", "Material Shortage", "Labor Shortage",
		"Equipment Failure", "Quality Issues",
	}
)

// Seeder generates sample record sets for local development and demos.
type Seeder interface {
	InsertDurations(ctx context.Context, records []model.DurationRecord) (int64, error)
	InsertUtilizations(ctx context.Context, records []model.UtilizationRecord) (int64, error)
	InsertRisks(ctx context.Context, records []model.RiskRecord) error
}

// Seed writes 30 days of sample data for the project: daily duration
// observations per work package, daily utilization per resource type, and
// one current risk snapshot. The seed fixes the RNG so repeated runs for
// the same project produce the same rows.
func Seed(ctx context.Context, store Seeder, projectID string, now time.Time, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	start := now.AddDate(0, 0, -30)

	var durations []model.DurationRecord
	var utilizations []model.UtilizationRecord
	for day := 0; day <= 30; day++ {
		ts := start.AddDate(0, 0, day)
		for _, pkg := range seedWorkPackages {
			planned := 20 + rng.Float64()*20
			actual := planned * (0.9 + rng.Float64()*0.3)
			durations = append(durations, model.NewDurationRecord(ts, projectID, pkg, planned, actual))
		}
		for _, res := range seedResourceTypes {
			planned := 70 + rng.Float64()*20
			actual := planned * (0.8 + rng.Float64()*0.3)
			utilizations = append(utilizations, model.NewUtilizationRecord(ts, projectID, res, planned, actual))
		}
	}

	risks := make([]model.RiskRecord, 0, len(seedRiskTypes))
	for _, rt := range seedRiskTypes {
		status := model.RiskActive
		if rng.Float64() < 0.5 {
			status = model.RiskMitigated
		}
		risks = append(risks, model.RiskRecord{
			Timestamp:      now,
			RiskType:       rt,
			Probability:    0.1 + rng.Float64()*0.8,
			Impact:         0.2 + rng.Float64()*0.6,
			Status:         status,
			MitigationPlan: fmt.Sprintf("Mitigation plan for %s", strings.ToLower(rt)),
			ProjectID:      projectID,
		})
	}

	if _, err := store.InsertDurations(ctx, durations); err != nil {
		return fmt.Errorf("storage: seed durations: %w", err)
	}
	if _, err := store.InsertUtilizations(ctx, utilizations); err != nil {
		return fmt.Errorf("storage: seed utilizations: %w", err)
	}
	if err := store.InsertRisks(ctx, risks); err != nil {
		return fmt.Errorf("storage: seed risks: %w", err)
	}
	return nil
}
