package metrics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takuto-ai/takuto/internal/model"
)

func durations(pairs ...[2]float64) []model.DurationRecord {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.DurationRecord, len(pairs))
	for i, p := range pairs {
		out[i] = model.NewDurationRecord(ts.AddDate(0, 0, i), "proj-a", "wp", p[0], p[1])
	}
	return out
}

func TestTaktAdherence_ScenarioFromPlan(t *testing.T) {
	// Ratios 1.10 and 1.33: the first is exactly at tolerance, the second over.
	a := TaktAdherence(durations([2]float64{20, 22}, [2]float64{30, 40}))
	assert.InDelta(t, 50.0, a.AverageAdherence, 1e-9)
}

func TestTaktAdherence_Empty(t *testing.T) {
	a := TaktAdherence(nil)
	assert.Zero(t, a.AverageAdherence)
	assert.Zero(t, a.StabilityIndex)
}

func TestTaktAdherence_SkipsUndefinedRatios(t *testing.T) {
	records := durations([2]float64{0, 5}, [2]float64{10, 10})
	a := TaktAdherence(records)
	assert.InDelta(t, 100.0, a.AverageAdherence, 1e-9)
	// Single defined ratio: zero spread, perfect stability.
	assert.InDelta(t, 100.0, a.StabilityIndex, 1e-9)
}

func TestTaktAdherence_StabilityIndex(t *testing.T) {
	// Ratios 1.0 and 1.2: population stddev 0.1 → index 90.
	a := TaktAdherence(durations([2]float64{10, 10}, [2]float64{10, 12}))
	assert.InDelta(t, 90.0, a.StabilityIndex, 1e-6)
}

func TestFlowEfficiency(t *testing.T) {
	// 10h on-plan, 30h overrun: 25% of elapsed time was value-adding.
	f := FlowEfficiency(durations([2]float64{10, 10}, [2]float64{20, 30}))
	assert.InDelta(t, 25.0, f.FlowEfficiency, 1e-9)
	assert.InDelta(t, 75.0, f.WastePercentage, 1e-9)
}

func TestFlowEfficiency_Empty(t *testing.T) {
	f := FlowEfficiency(nil)
	assert.Zero(t, f.FlowEfficiency)
	assert.Zero(t, f.WastePercentage)
}

func TestFlowEfficiency_ZeroTotal(t *testing.T) {
	f := FlowEfficiency(durations([2]float64{5, 0}))
	assert.Zero(t, f.FlowEfficiency)
}

func TestFlowEfficiency_OrderInvariant(t *testing.T) {
	records := durations(
		[2]float64{10, 9}, [2]float64{20, 30}, [2]float64{15, 15},
		[2]float64{8, 12}, [2]float64{25, 20},
	)
	want := FlowEfficiency(records)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]model.DurationRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := FlowEfficiency(shuffled)
		assert.InDelta(t, want.FlowEfficiency, got.FlowEfficiency, 1e-9)
	}
}

func TestBottlenecks_ExactMembershipAndOrder(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []model.DurationRecord{
		model.NewDurationRecord(ts, "proj-a", "Foundation", 10, 15), // 1.5
		model.NewDurationRecord(ts, "proj-a", "Framing", 10, 11),    // 1.1
		model.NewDurationRecord(ts, "proj-a", "MEP", 10, 13),        // 1.3
		model.NewDurationRecord(ts, "proj-a", "Finishes", 10, 12),   // 1.2 — at, not over
		model.NewDurationRecord(ts, "proj-a", "Exterior", 0, 9),     // undefined factor
	}

	got := Bottlenecks(records)
	require.Len(t, got, 2)
	assert.Equal(t, "Foundation", got[0].WorkPackage)
	assert.InDelta(t, 5.0, got[0].Impact, 1e-9)
	assert.Equal(t, "MEP", got[1].WorkPackage)
}

func TestBottlenecks_Empty(t *testing.T) {
	assert.Empty(t, Bottlenecks(nil))
}

func TestVarianceTrend_Improving(t *testing.T) {
	// Variances 5,4,3,2,1,0,-1: the trailing average falls.
	tr := VarianceTrend(durations(
		[2]float64{10, 15}, [2]float64{10, 14}, [2]float64{10, 13},
		[2]float64{10, 12}, [2]float64{10, 11}, [2]float64{10, 10},
		[2]float64{10, 9},
	))
	assert.Equal(t, "Improving", tr.Label)
	require.Len(t, tr.Pattern, 7)
	assert.InDelta(t, 5.0, tr.Pattern[0], 1e-9)
	// Last window: variances 3,2,1,0,-1 → mean 1.
	assert.InDelta(t, 1.0, tr.Pattern[6], 1e-9)
}

func TestVarianceTrend_Degrading(t *testing.T) {
	tr := VarianceTrend(durations([2]float64{10, 10}, [2]float64{10, 14}, [2]float64{10, 18}))
	assert.Equal(t, "Degrading", tr.Label)
}

func TestVarianceTrend_Empty(t *testing.T) {
	tr := VarianceTrend(nil)
	assert.Equal(t, "No data", tr.Label)
	assert.Nil(t, tr.Pattern)
}

func TestVarianceTrend_SinglePoint(t *testing.T) {
	// One point: last equals first, which is not an improvement.
	tr := VarianceTrend(durations([2]float64{10, 12}))
	assert.Equal(t, "Degrading", tr.Label)
}

func TestPredictVariance_LinearSeries(t *testing.T) {
	// Variances 1,2,3,4: a perfect line predicting 5 with full confidence.
	p := PredictVariance(durations(
		[2]float64{10, 11}, [2]float64{10, 12}, [2]float64{10, 13}, [2]float64{10, 14},
	))
	require.NotNil(t, p.Prediction)
	assert.InDelta(t, 5.0, *p.Prediction, 1e-9)
	assert.InDelta(t, 100.0, p.Confidence, 1e-6)
}

func TestPredictVariance_Empty(t *testing.T) {
	p := PredictVariance(nil)
	assert.Nil(t, p.Prediction)
	assert.Zero(t, p.Confidence)
}

func TestPredictVariance_SinglePoint(t *testing.T) {
	p := PredictVariance(durations([2]float64{10, 13}))
	require.NotNil(t, p.Prediction)
	assert.InDelta(t, 3.0, *p.Prediction, 1e-9)
	assert.Zero(t, p.Confidence)
}

func TestPredictVariance_ConstantSeries(t *testing.T) {
	p := PredictVariance(durations([2]float64{10, 12}, [2]float64{10, 12}, [2]float64{10, 12}))
	require.NotNil(t, p.Prediction)
	assert.InDelta(t, 2.0, *p.Prediction, 1e-9)
	assert.InDelta(t, 100.0, p.Confidence, 1e-6)
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	records := durations([2]float64{10, 15}, [2]float64{10, 9})
	before := append([]model.DurationRecord(nil), records...)
	_ = Compute(records)
	assert.Equal(t, before, records)
}
