package orchestrator

import (
	"sort"
	"strings"

	"github.com/takuto-ai/takuto/internal/model"
)

// Synthesis is the combined recommendation set across all agents, split by
// kind. Within each bucket, entries are deduplicated by normalized text and
// ordered by declared priority, then by the recommending agent's roster
// position, then by the recommendation's position within that agent.
type Synthesis struct {
	StrategicRecommendations []model.Recommendation `json:"strategic_recommendations"`
	ImplementationPlan       []model.Recommendation `json:"implementation_plan"`
	RiskMitigation           []model.Recommendation `json:"risk_mitigation"`
	SuccessMetrics           []model.Recommendation `json:"success_metrics"`
}

// synthesize merges the recommendations of all analyses. The input order is
// the roster order, which makes the output fully deterministic for a given
// set of analyses. Empty or degraded analyses contribute nothing.
func synthesize(analyses []model.AgentAnalysis) Synthesis {
	buckets := map[model.RecommendationKind][]model.Recommendation{}
	for _, a := range analyses {
		for _, rec := range a.Recommendations {
			if strings.TrimSpace(rec.Text) == "" {
				continue
			}
			buckets[rec.Kind] = append(buckets[rec.Kind], rec)
		}
	}
	return Synthesis{
		StrategicRecommendations: rank(buckets[model.KindStrategic]),
		ImplementationPlan:       rank(buckets[model.KindAction]),
		RiskMitigation:           rank(buckets[model.KindMitigation]),
		SuccessMetrics:           rank(buckets[model.KindMetric]),
	}
}

// rank orders a bucket by priority (stable, so roster order breaks ties)
// and drops later duplicates of the same normalized text. Sorting before
// deduplication keeps the highest-priority copy of a duplicated text.
func rank(recs []model.Recommendation) []model.Recommendation {
	out := append([]model.Recommendation(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool {
		return model.PriorityRank(out[i].Priority) < model.PriorityRank(out[j].Priority)
	})

	seen := map[string]bool{}
	deduped := out[:0]
	for _, rec := range out {
		key := normalize(rec.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, rec)
	}
	return deduped
}

// normalize collapses case and whitespace so trivially restated
// recommendations deduplicate.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
