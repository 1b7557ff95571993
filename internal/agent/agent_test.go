package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takuto-ai/takuto/internal/model"
	"github.com/takuto-ai/takuto/internal/testutil"
)

func fullContext() model.AnalysisContext {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	history := []model.DurationRecord{}
	planned := []float64{10, 20, 15, 30, 25, 12, 28, 22}
	actual := []float64{11, 19, 18, 40, 24, 12, 30, 21}
	packages := []string{"Foundation", "Framing", "MEP", "Finishes", "Exterior", "Foundation", "Framing", "MEP"}
	for i := range planned {
		history = append(history, model.NewDurationRecord(ts.AddDate(0, 0, i), "proj-a", packages[i], planned[i], actual[i]))
	}
	return model.AnalysisContext{
		ProjectID:          "proj-a",
		ProjectName:        "Harbor Tower",
		ProjectSize:        12000,
		Duration:           90,
		TeamSize:           24,
		AvailableHours:     40,
		DemandUnits:        8,
		Complexity:         "high",
		HistoricalProjects: []string{"proj-0"},
		History:            history,
	}
}

func allAgents(t *testing.T) []Agent {
	t.Helper()
	agents, err := Build(DefaultRoster(), testutil.TestLogger())
	require.NoError(t, err)
	require.Len(t, agents, 6)
	return agents
}

func TestAnalyze_SixStepsPerAgent(t *testing.T) {
	actx := fullContext()
	for _, ag := range allAgents(t) {
		analysis := ag.Analyze(context.Background(), actx)
		assert.Len(t, analysis.ReasoningSteps, 6, ag.Profile().Name)
		assert.Equal(t, ag.Profile().Name, analysis.AgentName)
		assert.Equal(t, ag.Profile().Expertise, analysis.Expertise)
		assert.True(t, analysis.CrossValidationNeeded, ag.Profile().Name)
	}
}

func TestAnalyze_FullContextCompletesAllSteps(t *testing.T) {
	actx := fullContext()
	for _, ag := range allAgents(t) {
		analysis := ag.Analyze(context.Background(), actx)
		assert.Equal(t, 6, analysis.CompletedSteps(), ag.Profile().Name)
		assert.NotEmpty(t, analysis.Conclusions, ag.Profile().Name)
		assert.NotEmpty(t, analysis.Recommendations, ag.Profile().Name)
	}
}

func TestAnalyze_EmptyContextDegradesButNeverAborts(t *testing.T) {
	for _, ag := range allAgents(t) {
		analysis := ag.Analyze(context.Background(), model.AnalysisContext{})
		assert.Len(t, analysis.ReasoningSteps, 6, ag.Profile().Name)
		for _, s := range analysis.ReasoningSteps {
			if s.Failed() {
				assert.NotEmpty(t, s.Err)
			}
		}
	}
}

func TestAnalyze_DoesNotMutateCallerContext(t *testing.T) {
	actx := fullContext()
	before := actx.Clone()
	for _, ag := range allAgents(t) {
		_ = ag.Analyze(context.Background(), actx)
	}
	assert.Equal(t, before, actx)
}

func TestValidate_ZeroValueAnalysisIsRejected(t *testing.T) {
	for _, ag := range allAgents(t) {
		assert.False(t, ag.Validate(model.AgentAnalysis{}), ag.Profile().Name)
	}
}

func TestValidate_FullAnalysisIsAccepted(t *testing.T) {
	actx := fullContext()
	agents := allAgents(t)
	analysis := agents[0].Analyze(context.Background(), actx)
	for _, ag := range agents {
		assert.True(t, ag.Validate(analysis), ag.Profile().Name)
	}
}

func TestCrossValidate_OneVerdictPerPeer(t *testing.T) {
	agents := allAgents(t)
	analysis := agents[0].Analyze(context.Background(), fullContext())

	validated := CrossValidate(agents[0], agents, analysis)
	require.Len(t, validated.CrossValidation, len(agents)-1)
	for i, res := range validated.CrossValidation {
		assert.Equal(t, agents[i+1].Profile().Name, res.Validator)
	}
}

func TestCrossValidate_DoesNotMutateInput(t *testing.T) {
	agents := allAgents(t)
	analysis := agents[0].Analyze(context.Background(), fullContext())

	_ = CrossValidate(agents[0], agents, analysis)
	assert.Empty(t, analysis.CrossValidation)
}
