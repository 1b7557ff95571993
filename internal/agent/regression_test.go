package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takuto-ai/takuto/internal/model"
)

func historyFrom(planned, actual []float64) []model.DurationRecord {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.DurationRecord, len(planned))
	for i := range planned {
		out[i] = model.NewDurationRecord(ts.AddDate(0, 0, i), "proj-a", "wp", planned[i], actual[i])
	}
	return out
}

func TestTrainDurationModel_PerfectLinearFit(t *testing.T) {
	// actual = 2 * planned exactly: the fit recovers the relationship and
	// the holdout error vanishes.
	planned := []float64{10, 20, 15, 30, 25, 12, 28, 22, 18, 26}
	actual := make([]float64, len(planned))
	for i, p := range planned {
		actual[i] = 2 * p
	}

	m, err := trainDurationModel(historyFrom(planned, actual))
	require.NoError(t, err)

	assert.InDelta(t, 2.0, m.Coefficients["planned_duration"], 1e-6)
	assert.InDelta(t, 0.0, m.Coefficients["sequence_index"], 1e-6)
	assert.InDelta(t, 0.0, m.Intercept, 1e-6)
	assert.InDelta(t, 0.0, m.MSE, 1e-6)
	assert.InDelta(t, 1.0, m.R2, 1e-6)

	// Holdout is the last 20% of records.
	require.Len(t, m.Predictions, 2)
	assert.InDelta(t, 36.0, m.Predictions[0], 1e-6)
	assert.InDelta(t, 52.0, m.Predictions[1], 1e-6)
}

func TestTrainDurationModel_FeatureImportanceSumsToOne(t *testing.T) {
	planned := []float64{10, 20, 15, 30, 25, 12, 28, 22, 18, 26}
	actual := make([]float64, len(planned))
	for i, p := range planned {
		actual[i] = 2 * p
	}

	m, err := trainDurationModel(historyFrom(planned, actual))
	require.NoError(t, err)

	total := 0.0
	for _, v := range m.FeatureImportance {
		assert.GreaterOrEqual(t, v, 0.0)
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-6)
	// Planned duration carries the relationship; the index coefficient is 0.
	assert.Greater(t, m.FeatureImportance["planned_duration"], m.FeatureImportance["sequence_index"])
}

func TestTrainDurationModel_TooFewSamples(t *testing.T) {
	_, err := trainDurationModel(historyFrom([]float64{10, 20}, []float64{11, 21}))
	assert.ErrorIs(t, err, errInsufficientData)
}

func TestTrainDurationModel_DegenerateFeatures(t *testing.T) {
	// Constant planned duration is collinear with the intercept.
	planned := []float64{10, 10, 10, 10, 10}
	actual := []float64{11, 12, 13, 14, 15}
	_, err := trainDurationModel(historyFrom(planned, actual))
	assert.ErrorIs(t, err, errInsufficientData)
}
