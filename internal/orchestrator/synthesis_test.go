package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takuto-ai/takuto/internal/model"
)

func analysisWith(name string, recs ...model.Recommendation) model.AgentAnalysis {
	return model.AgentAnalysis{AgentName: name, Recommendations: recs}
}

func TestSynthesize_SplitsByKind(t *testing.T) {
	syn := synthesize([]model.AgentAnalysis{
		analysisWith("a",
			model.Recommendation{Text: "plan the rollout", Priority: model.PriorityHigh, Kind: model.KindStrategic},
			model.Recommendation{Text: "rebalance crews", Priority: model.PriorityMedium, Kind: model.KindAction},
			model.Recommendation{Text: "hold reserves", Priority: model.PriorityHigh, Kind: model.KindMitigation},
			model.Recommendation{Text: "track adherence", Priority: model.PriorityLow, Kind: model.KindMetric},
		),
	})

	assert.Len(t, syn.StrategicRecommendations, 1)
	assert.Len(t, syn.ImplementationPlan, 1)
	assert.Len(t, syn.RiskMitigation, 1)
	assert.Len(t, syn.SuccessMetrics, 1)
}

func TestSynthesize_PriorityBeforeRosterOrder(t *testing.T) {
	syn := synthesize([]model.AgentAnalysis{
		analysisWith("first",
			model.Recommendation{Text: "low from first", Priority: model.PriorityLow, Kind: model.KindAction},
			model.Recommendation{Text: "medium from first", Priority: model.PriorityMedium, Kind: model.KindAction},
		),
		analysisWith("second",
			model.Recommendation{Text: "high from second", Priority: model.PriorityHigh, Kind: model.KindAction},
			model.Recommendation{Text: "medium from second", Priority: model.PriorityMedium, Kind: model.KindAction},
		),
	})

	texts := make([]string, 0, len(syn.ImplementationPlan))
	for _, r := range syn.ImplementationPlan {
		texts = append(texts, r.Text)
	}
	assert.Equal(t, []string{
		"high from second",
		"medium from first",
		"medium from second",
		"low from first",
	}, texts)
}

func TestSynthesize_DeduplicatesByNormalizedText(t *testing.T) {
	syn := synthesize([]model.AgentAnalysis{
		analysisWith("a", model.Recommendation{Text: "Hold  Reserves", Priority: model.PriorityLow, Kind: model.KindMitigation}),
		analysisWith("b", model.Recommendation{Text: "hold reserves", Priority: model.PriorityHigh, Kind: model.KindMitigation}),
	})

	require.Len(t, syn.RiskMitigation, 1)
	// The higher-priority copy survives.
	assert.Equal(t, model.PriorityHigh, syn.RiskMitigation[0].Priority)
}

func TestSynthesize_EmptyAndBlankAnalysesContributeNothing(t *testing.T) {
	syn := synthesize([]model.AgentAnalysis{
		{},
		analysisWith("blank", model.Recommendation{Text: "   ", Kind: model.KindAction}),
	})

	assert.Empty(t, syn.StrategicRecommendations)
	assert.Empty(t, syn.ImplementationPlan)
	assert.Empty(t, syn.RiskMitigation)
	assert.Empty(t, syn.SuccessMetrics)
}

func TestSynthesize_UnknownPrioritySortsLast(t *testing.T) {
	syn := synthesize([]model.AgentAnalysis{
		analysisWith("a",
			model.Recommendation{Text: "unranked", Priority: "someday", Kind: model.KindAction},
			model.Recommendation{Text: "ranked", Priority: model.PriorityLow, Kind: model.KindAction},
		),
	})

	require.Len(t, syn.ImplementationPlan, 2)
	assert.Equal(t, "ranked", syn.ImplementationPlan[0].Text)
	assert.Equal(t, "unranked", syn.ImplementationPlan[1].Text)
}
