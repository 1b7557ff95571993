package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/model"
)

// riskCategory groups related risk factors with an assessed impact level.
type riskCategory struct {
	Category    string   `json:"category"`
	Factors     []string `json:"factors"`
	ImpactLevel string   `json:"impact_level"`
}

// RiskController reasons about risk identification, historical variability,
// contingency, mitigation, and monitoring.
type RiskController struct {
	base
}

// NewRiskController creates the risk agent for the given profile.
func NewRiskController(profile model.AgentProfile, logger *slog.Logger) *RiskController {
	return &RiskController{base: newBase(profile, logger)}
}

func (a *RiskController) Analyze(_ context.Context, actx model.AnalysisContext) model.AgentAnalysis {
	steps := []stepFunc{
		a.identifyRisks,
		a.analyzeVariability,
		a.developContingencies,
		a.planMitigation,
		a.monitorIndicators,
		a.adjustPlans,
	}
	return a.run(actx, steps, a.conclusions, a.recommendations)
}

// Validate checks the risk assessment, mitigation coverage, and contingency
// evidence.
func (a *RiskController) Validate(analysis model.AgentAnalysis) bool {
	assessment := analysis.CompletedSteps() > 0
	mitigation := len(analysis.Recommendations) > 0
	contingency := analysis.Context.Duration > 0
	return assessment && mitigation && contingency
}

func (a *RiskController) identifyRisks(actx model.AnalysisContext) model.ReasoningStep {
	impact := func(base string) string {
		if actx.Complexity == "high" {
			return "high"
		}
		return base
	}
	categories := []riskCategory{
		{Category: "Weather Risks", Factors: []string{"seasonal weather patterns", "extreme weather events"}, ImpactLevel: impact("medium")},
		{Category: "Supply Chain Risks", Factors: []string{"material delays", "supplier reliability"}, ImpactLevel: impact("medium")},
		{Category: "Labor Risks", Factors: []string{"workforce availability", "skill requirements"}, ImpactLevel: impact("low")},
		{Category: "Technical Risks", Factors: []string{"equipment reliability", "technical complexity"}, ImpactLevel: impact("low")},
	}
	return model.ReasoningStep{
		Name: "Project Risk Identification",
		Findings: model.Findings{
			"risk_categories":   categories,
			"risk_factors":      len(categories) * 2,
			"impact_assessment": actx.Complexity,
		},
	}
}

func (a *RiskController) analyzeVariability(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Historical Variability Analysis", "no historical records")
	}
	trend := metrics.VarianceTrend(actx.History)
	disruptions := 0
	for _, r := range actx.History {
		if r.BottleneckFactor > 1.2 {
			disruptions++
		}
	}
	return model.ReasoningStep{
		Name: "Historical Variability Analysis",
		Findings: model.Findings{
			"past_disruptions":     disruptions,
			"variability_patterns": trend,
			"lessons_learned":      "overruns cluster on a few packages",
		},
	}
}

func (a *RiskController) developContingencies(actx model.AnalysisContext) model.ReasoningStep {
	if actx.Duration <= 0 {
		return degraded("Contingency Planning", "duration required")
	}
	reserve := actx.Duration * 0.1
	return model.ReasoningStep{
		Name: "Contingency Planning",
		Findings: model.Findings{
			"time_reserve_days": reserve,
			"trigger":           "two consecutive missed takt periods",
			"fallback":          "re-sequence the train around the blocked zone",
		},
	}
}

func (a *RiskController) planMitigation(actx model.AnalysisContext) model.ReasoningStep {
	actions := []string{
		"pre-qualify backup suppliers for long-lead materials",
		"cross-train crews across adjacent trades",
	}
	if actx.Complexity == "high" {
		actions = append(actions, "stand up a dedicated risk review per takt period")
	}
	return model.ReasoningStep{
		Name: "Risk Mitigation",
		Findings: model.Findings{
			"actions": actions,
		},
	}
}

func (a *RiskController) monitorIndicators(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Risk Indicator Monitoring", "no historical records")
	}
	pred := metrics.PredictVariance(actx.History)
	return model.ReasoningStep{
		Name: "Risk Indicator Monitoring",
		Findings: model.Findings{
			"leading_indicator": "predicted next-period variance",
			"forecast":          pred,
		},
	}
}

func (a *RiskController) adjustPlans(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("TAKT Plan Adjustment", "no historical records")
	}
	trend := metrics.VarianceTrend(actx.History)
	adjustment := "no adjustment"
	if trend.Label == "Degrading" {
		adjustment = "widen zone buffers"
	}
	return model.ReasoningStep{
		Name: "TAKT Plan Adjustment",
		Findings: model.Findings{
			"trend":      trend.Label,
			"adjustment": adjustment,
		},
	}
}

func (a *RiskController) conclusions(steps []model.ReasoningStep) []model.Conclusion {
	out := []model.Conclusion{}
	if cs, ok := finding(steps, "Project Risk Identification", "risk_categories").([]riskCategory); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("%d risk categories assessed", len(cs)),
			Basis: "Project Risk Identification",
		})
	}
	if n, ok := finding(steps, "Historical Variability Analysis", "past_disruptions").(int); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("%d historical disruptions on record", n),
			Basis: "Historical Variability Analysis",
		})
	}
	return out
}

func (a *RiskController) recommendations(steps []model.ReasoningStep) []model.Recommendation {
	out := []model.Recommendation{
		{
			Text:     "maintain contingency reserves with explicit release triggers",
			Priority: model.PriorityHigh,
			Kind:     model.KindMitigation,
		},
	}
	if actions, ok := finding(steps, "Risk Mitigation", "actions").([]string); ok && len(actions) > 0 {
		out = append(out, model.Recommendation{
			Text:     actions[0],
			Priority: model.PriorityMedium,
			Kind:     model.KindMitigation,
		})
	}
	if v, _ := finding(steps, "TAKT Plan Adjustment", "adjustment").(string); v == "widen zone buffers" {
		out = append(out, model.Recommendation{
			Text:     "widen zone buffers while the variance trend degrades",
			Priority: model.PriorityHigh,
			Kind:     model.KindMitigation,
		})
	}
	out = append(out, model.Recommendation{
		Text:     "watch predicted next-period variance as the leading risk indicator",
		Priority: model.PriorityMedium,
		Kind:     model.KindMetric,
	})
	return out
}
