package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takuto-ai/takuto/internal/model"
	"github.com/takuto-ai/takuto/internal/testutil"
)

type fakeStore struct {
	durations   []model.DurationRecord
	utilization []model.UtilizationRecord
	risks       []model.RiskRecord
	err         error
}

func (f *fakeStore) QueryDurations(_ context.Context, _ string, _, _ time.Time) ([]model.DurationRecord, error) {
	return f.durations, f.err
}

func (f *fakeStore) QueryUtilization(_ context.Context, _ string, _, _ time.Time) ([]model.UtilizationRecord, error) {
	return f.utilization, f.err
}

func (f *fakeStore) LatestRisks(_ context.Context, _ string) ([]model.RiskRecord, error) {
	return f.risks, f.err
}

func window() (time.Time, time.Time) {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -30), end
}

func TestEngineCompute(t *testing.T) {
	store := &fakeStore{durations: durations([2]float64{20, 22}, [2]float64{30, 40})}
	eng := NewEngine(store, testutil.TestLogger())

	start, end := window()
	bundle, err := eng.Compute(context.Background(), "proj-a", start, end)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, bundle.TaktAdherence.AverageAdherence, 1e-9)
	require.Len(t, bundle.Bottlenecks, 1)
	assert.InDelta(t, 40.0/30.0, bundle.Bottlenecks[0].Factor, 1e-9)
}

func TestEngineCompute_StoreError(t *testing.T) {
	eng := NewEngine(&fakeStore{err: errors.New("connection refused")}, testutil.TestLogger())

	start, end := window()
	_, err := eng.Compute(context.Background(), "proj-a", start, end)
	assert.ErrorContains(t, err, "query durations")
}

func TestEngineResourceEfficiencies(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{utilization: []model.UtilizationRecord{
		model.NewUtilizationRecord(ts, "proj-a", "Labor", 80, 80),
		model.NewUtilizationRecord(ts, "proj-a", "Equipment", 50, 40),
		model.NewUtilizationRecord(ts, "proj-a", "Labor", 100, 90),
	}}
	eng := NewEngine(store, testutil.TestLogger())

	start, end := window()
	effs, err := eng.ResourceEfficiencies(context.Background(), "proj-a", start, end)
	require.NoError(t, err)
	require.Len(t, effs, 2)

	assert.Equal(t, "Labor", effs[0].ResourceType)
	assert.InDelta(t, 95.0, effs[0].AvgEfficiency, 1e-9)
	assert.Equal(t, 2, effs[0].Samples)
	assert.Equal(t, "Equipment", effs[1].ResourceType)
	assert.InDelta(t, 80.0, effs[1].AvgEfficiency, 1e-9)
}

func TestEngineRiskMatrix_EmptyIsNotAnError(t *testing.T) {
	eng := NewEngine(&fakeStore{}, testutil.TestLogger())

	risks, err := eng.RiskMatrix(context.Background(), "proj-a")
	require.NoError(t, err)
	assert.NotNil(t, risks)
	assert.Empty(t, risks)
}
