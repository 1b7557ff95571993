package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDurationRecord_DerivedFields(t *testing.T) {
	r := NewDurationRecord(testTime(), "proj-a", "Foundation", 20, 22)

	assert.InDelta(t, 2.0, r.Variance, 1e-9)
	assert.InDelta(t, 1.1, r.BottleneckFactor, 1e-9)
}

func TestNewDurationRecord_ZeroPlanned(t *testing.T) {
	r := NewDurationRecord(testTime(), "proj-a", "Foundation", 0, 8)

	// Factor is undefined when nothing was planned; the zero sentinel must
	// not read as "on pace".
	assert.Zero(t, r.BottleneckFactor)
	assert.InDelta(t, 8.0, r.Variance, 1e-9)
}

func TestNewUtilizationRecord_Efficiency(t *testing.T) {
	r := NewUtilizationRecord(testTime(), "proj-a", "Labor", 80, 80)
	assert.InDelta(t, 100.0, r.Efficiency, 1e-9)

	r = NewUtilizationRecord(testTime(), "proj-a", "Labor", 0, 10)
	assert.Zero(t, r.Efficiency)
}

func TestRiskRecord_Validate(t *testing.T) {
	valid := RiskRecord{RiskType: "Weather Delay", Probability: 0.4, Impact: 0.7, Status: RiskActive}
	require.NoError(t, valid.Validate())

	cases := map[string]RiskRecord{
		"missing type":    {Probability: 0.4, Impact: 0.7, Status: RiskActive},
		"bad probability": {RiskType: "x", Probability: 1.4, Impact: 0.7, Status: RiskActive},
		"bad impact":      {RiskType: "x", Probability: 0.4, Impact: -0.1, Status: RiskActive},
		"bad status":      {RiskType: "x", Probability: 0.4, Impact: 0.7, Status: "Open"},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, rec.Validate())
		})
	}
}

func TestAnalysisContext_CloneIsDeep(t *testing.T) {
	actx := AnalysisContext{
		ProjectID:          "proj-a",
		HistoricalProjects: []string{"p1"},
		History:            []DurationRecord{NewDurationRecord(testTime(), "proj-a", "wp", 10, 12)},
		Notes:              map[string]string{"site": "north"},
	}

	clone := actx.Clone()
	clone.HistoricalProjects[0] = "changed"
	clone.History[0].WorkPackage = "changed"
	clone.Notes["site"] = "changed"

	assert.Equal(t, "p1", actx.HistoricalProjects[0])
	assert.Equal(t, "wp", actx.History[0].WorkPackage)
	assert.Equal(t, "north", actx.Notes["site"])
}

func TestTaktTime(t *testing.T) {
	actx := AnalysisContext{AvailableHours: 40, DemandUnits: 8}
	assert.InDelta(t, 5.0, actx.TaktTime(), 1e-9)
	assert.True(t, actx.HasTaktInputs())

	assert.Zero(t, AnalysisContext{AvailableHours: 40}.TaktTime())
	assert.False(t, AnalysisContext{}.HasTaktInputs())
}

func TestWithCrossValidation_DoesNotMutateReceiver(t *testing.T) {
	a := NewAgentAnalysis(AgentProfile{Name: "agent-a", Expertise: "x"}, AnalysisContext{ProjectID: "p"})
	a.ReasoningSteps = append(a.ReasoningSteps, ReasoningStep{Name: "Step", Findings: Findings{"k": "v"}})

	out := a.WithCrossValidation([]CrossValidationResult{
		{Validator: "agent-b", Validated: true},
		{Validator: "agent-c", Validated: false},
	})

	assert.Empty(t, a.CrossValidation, "receiver must stay untouched")
	require.Len(t, out.CrossValidation, 2)
	assert.Equal(t, "agent-b", out.CrossValidation[0].Validator)

	// The copy must not alias the receiver's step data either.
	out.ReasoningSteps[0].Findings["k"] = "changed"
	assert.Equal(t, "v", a.ReasoningSteps[0].Findings["k"])
}

func TestNewAgentAnalysis_Defaults(t *testing.T) {
	a := NewAgentAnalysis(AgentProfile{Name: "agent-a", Expertise: "Scheduling"}, AnalysisContext{})

	assert.True(t, a.CrossValidationNeeded)
	assert.NotNil(t, a.ReasoningSteps)
	assert.Empty(t, a.ReasoningSteps)
	assert.NotEqual(t, a.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, "Scheduling", a.Expertise)
}

func TestStepLookup(t *testing.T) {
	a := NewAgentAnalysis(AgentProfile{Name: "agent-a"}, AnalysisContext{})
	a.ReasoningSteps = []ReasoningStep{
		{Name: "First"},
		{Name: "Second", Err: "missing demand"},
	}

	s, ok := a.Step("Second")
	require.True(t, ok)
	assert.True(t, s.Failed())
	assert.Equal(t, 1, a.CompletedSteps())

	_, ok = a.Step("Third")
	assert.False(t, ok)
}
