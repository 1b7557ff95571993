package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/model"
)

// StrategyArchitect reasons about portfolio and enterprise-level adoption:
// objectives, current state, feasibility, roadmap, risk outlook, and
// framework alignment.
type StrategyArchitect struct {
	base
}

// NewStrategyArchitect creates the strategy agent for the given profile.
func NewStrategyArchitect(profile model.AgentProfile, logger *slog.Logger) *StrategyArchitect {
	return &StrategyArchitect{base: newBase(profile, logger)}
}

func (a *StrategyArchitect) Analyze(_ context.Context, actx model.AnalysisContext) model.AgentAnalysis {
	steps := []stepFunc{
		a.defineObjectives,
		a.analyzeCurrentState,
		a.assessFeasibility,
		a.developRoadmap,
		a.predictRisks,
		a.alignFrameworks,
	}
	return a.run(actx, steps, a.conclusions, a.recommendations)
}

// Validate checks strategic alignment, resource feasibility, and a
// plausible implementation timeline.
func (a *StrategyArchitect) Validate(analysis model.AgentAnalysis) bool {
	alignment := len(analysis.Conclusions) > 0 && analysis.CompletedSteps() > 0
	resources := analysis.Context.TeamSize > 0
	timeline := analysis.Context.Duration > 0
	return alignment && resources && timeline
}

func (a *StrategyArchitect) defineObjectives(actx model.AnalysisContext) model.ReasoningStep {
	if actx.ProjectName == "" || actx.Duration <= 0 {
		return degraded("Define Objectives", "project name and duration required")
	}
	goals := []string{"stabilize production pace", "reduce duration variance"}
	if actx.ProjectSize > 0 {
		goals = append(goals, fmt.Sprintf("deliver %.0f scope units within %.0f days", actx.ProjectSize, actx.Duration))
	}
	return model.ReasoningStep{
		Name: "Define Objectives",
		Findings: model.Findings{
			"business_goals":  goals,
			"takt_objectives": fmt.Sprintf("single-piece flow for %s", actx.ProjectName),
			"success_metrics": []string{"takt adherence", "flow efficiency", "stability index"},
		},
	}
}

func (a *StrategyArchitect) analyzeCurrentState(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Current State Analysis", "no historical records")
	}
	adherence := metrics.TaktAdherence(actx.History)
	gaps := []string{}
	if adherence.AverageAdherence < 80 {
		gaps = append(gaps, "pace adherence below target")
	}
	if adherence.StabilityIndex < 85 {
		gaps = append(gaps, "unstable cycle times")
	}
	return model.ReasoningStep{
		Name: "Current State Analysis",
		Findings: model.Findings{
			"workflow_assessment": fmt.Sprintf("%d historical records reviewed", len(actx.History)),
			"performance_metrics": adherence,
			"strategic_gaps":      gaps,
		},
	}
}

func (a *StrategyArchitect) assessFeasibility(actx model.AnalysisContext) model.ReasoningStep {
	if !actx.HasTaktInputs() {
		return degraded("TAKT Feasibility Assessment", "available hours and demand units required")
	}
	verdict := "feasible"
	if actx.TeamSize > 0 && actx.DemandUnits/float64(actx.TeamSize) > 10 {
		verdict = "constrained"
	}
	return model.ReasoningStep{
		Name: "TAKT Feasibility Assessment",
		Findings: model.Findings{
			"takt_time":   actx.TaktTime(),
			"demand_load": actx.DemandUnits,
			"feasibility": verdict,
		},
	}
}

func (a *StrategyArchitect) developRoadmap(actx model.AnalysisContext) model.ReasoningStep {
	if actx.Duration <= 0 {
		return degraded("Roadmap Development", "duration required")
	}
	third := actx.Duration / 3
	return model.ReasoningStep{
		Name: "Roadmap Development",
		Findings: model.Findings{
			"pilot_phase":     fmt.Sprintf("days 1-%.0f: pilot on one work package", third),
			"rollout_phase":   fmt.Sprintf("days %.0f-%.0f: extend to all packages", third, 2*third),
			"stabilize_phase": fmt.Sprintf("days %.0f-%.0f: control and continuous improvement", 2*third, actx.Duration),
		},
	}
}

func (a *StrategyArchitect) predictRisks(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Risk Prediction", "no historical records")
	}
	pred := metrics.PredictVariance(actx.History)
	outlook := "variance expected to hold"
	if pred.Prediction != nil && *pred.Prediction > 0 {
		outlook = "variance expected to grow"
	}
	return model.ReasoningStep{
		Name: "Risk Prediction",
		Findings: model.Findings{
			"variance_forecast": pred,
			"outlook":           outlook,
		},
	}
}

func (a *StrategyArchitect) alignFrameworks(actx model.AnalysisContext) model.ReasoningStep {
	frameworks := []string{"last planner", "takt control board"}
	if actx.Complexity == "high" {
		frameworks = append(frameworks, "portfolio-level governance")
	}
	return model.ReasoningStep{
		Name: "Framework Alignment",
		Findings: model.Findings{
			"frameworks": frameworks,
			"cadence":    "weekly steering review",
		},
	}
}

func (a *StrategyArchitect) conclusions(steps []model.ReasoningStep) []model.Conclusion {
	out := []model.Conclusion{}
	if stepOK(steps, "TAKT Feasibility Assessment") {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("takt implementation is %v at the stated demand", finding(steps, "TAKT Feasibility Assessment", "feasibility")),
			Basis: "TAKT Feasibility Assessment",
		})
	}
	if stepOK(steps, "Current State Analysis") {
		out = append(out, model.Conclusion{
			Text:  "current performance baseline established from history",
			Basis: "Current State Analysis",
		})
	}
	if stepOK(steps, "Risk Prediction") {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("%v", finding(steps, "Risk Prediction", "outlook")),
			Basis: "Risk Prediction",
		})
	}
	return out
}

func (a *StrategyArchitect) recommendations(steps []model.ReasoningStep) []model.Recommendation {
	out := []model.Recommendation{}
	if stepOK(steps, "Roadmap Development") {
		out = append(out, model.Recommendation{
			Text:     "adopt a three-phase rollout: pilot, extend, stabilize",
			Priority: model.PriorityHigh,
			Kind:     model.KindStrategic,
		})
	}
	if v, _ := finding(steps, "TAKT Feasibility Assessment", "feasibility").(string); v == "constrained" {
		out = append(out, model.Recommendation{
			Text:     "rebalance demand or grow the team before committing to the takt",
			Priority: model.PriorityHigh,
			Kind:     model.KindStrategic,
		})
	}
	if stepOK(steps, "Framework Alignment") {
		out = append(out, model.Recommendation{
			Text:     "institute a weekly steering review against the takt control board",
			Priority: model.PriorityMedium,
			Kind:     model.KindStrategic,
		})
	}
	out = append(out, model.Recommendation{
		Text:     "track takt adherence, flow efficiency, and stability index",
		Priority: model.PriorityMedium,
		Kind:     model.KindMetric,
	})
	return out
}
