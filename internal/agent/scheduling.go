package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/model"
)

// SchedulingEngineer reasons about takt time, resourcing, sequencing, and
// overrun prevention.
type SchedulingEngineer struct {
	base
}

// NewSchedulingEngineer creates the scheduling agent for the given profile.
func NewSchedulingEngineer(profile model.AgentProfile, logger *slog.Logger) *SchedulingEngineer {
	return &SchedulingEngineer{base: newBase(profile, logger)}
}

func (a *SchedulingEngineer) Analyze(_ context.Context, actx model.AnalysisContext) model.AgentAnalysis {
	steps := []stepFunc{
		a.analyzeComplexity,
		a.calculateTaktTime,
		a.determineResources,
		a.sequenceTasks,
		a.preventOverruns,
		a.adjustVariability,
	}
	return a.run(actx, steps, a.conclusions, a.recommendations)
}

// Validate checks schedule feasibility, resource availability, and the takt
// time inputs.
func (a *SchedulingEngineer) Validate(analysis model.AgentAnalysis) bool {
	feasible := analysis.CompletedSteps() > 0 && analysis.Context.Duration > 0
	resources := analysis.Context.AvailableHours > 0
	takt := analysis.Context.HasTaktInputs()
	return feasible && resources && takt
}

func (a *SchedulingEngineer) analyzeComplexity(actx model.AnalysisContext) model.ReasoningStep {
	if actx.ProjectSize <= 0 && actx.Complexity == "" {
		return degraded("Project Complexity Analysis", "project size or complexity required")
	}
	level := actx.Complexity
	if level == "" {
		level = "medium"
		if actx.ProjectSize > 10000 {
			level = "high"
		}
	}
	return model.ReasoningStep{
		Name: "Project Complexity Analysis",
		Findings: model.Findings{
			"scope_assessment": actx.ProjectSize,
			"dependencies":     len(actx.HistoricalProjects),
			"constraints":      level,
		},
	}
}

func (a *SchedulingEngineer) calculateTaktTime(actx model.AnalysisContext) model.ReasoningStep {
	if !actx.HasTaktInputs() {
		return degraded("TAKT Time Calculation", "available hours and demand units required")
	}
	return model.ReasoningStep{
		Name: "TAKT Time Calculation",
		Findings: model.Findings{
			"customer_demand": actx.DemandUnits,
			"available_time":  actx.AvailableHours,
			"takt_time":       actx.TaktTime(),
		},
	}
}

func (a *SchedulingEngineer) determineResources(actx model.AnalysisContext) model.ReasoningStep {
	if actx.TeamSize <= 0 || !actx.HasTaktInputs() {
		return degraded("Resource Determination", "team size and takt inputs required")
	}
	crews := int(math.Ceil(actx.DemandUnits / float64(actx.TeamSize)))
	if crews < 1 {
		crews = 1
	}
	return model.ReasoningStep{
		Name: "Resource Determination",
		Findings: model.Findings{
			"crew_sizing":           crews,
			"equipment_needs":       "one set per active takt zone",
			"material_requirements": "zone kits staged one takt ahead",
		},
	}
}

func (a *SchedulingEngineer) sequenceTasks(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Task Sequencing", "no historical records")
	}
	longest := actx.History[0]
	for _, r := range actx.History[1:] {
		if r.ActualDuration > longest.ActualDuration {
			longest = r
		}
	}
	return model.ReasoningStep{
		Name: "Task Sequencing",
		Findings: model.Findings{
			"pacing_package": longest.WorkPackage,
			"sequence_rule":  "pace the train on the longest package",
		},
	}
}

func (a *SchedulingEngineer) preventOverruns(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Overrun Prevention", "no historical records")
	}
	adherence := metrics.TaktAdherence(actx.History)
	buffer := "standard capacity buffer"
	if adherence.AverageAdherence < 70 {
		buffer = "enlarged capacity buffer"
	}
	return model.ReasoningStep{
		Name: "Overrun Prevention",
		Findings: model.Findings{
			"adherence": adherence.AverageAdherence,
			"buffer":    buffer,
		},
	}
}

func (a *SchedulingEngineer) adjustVariability(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Variability Adjustment", "no historical records")
	}
	trend := metrics.VarianceTrend(actx.History)
	action := "hold the current takt"
	if trend.Label == "Degrading" {
		action = "lengthen the takt one notch"
	}
	return model.ReasoningStep{
		Name: "Variability Adjustment",
		Findings: model.Findings{
			"variance_trend": trend.Label,
			"adjustment":     action,
		},
	}
}

func (a *SchedulingEngineer) conclusions(steps []model.ReasoningStep) []model.Conclusion {
	out := []model.Conclusion{}
	if tt, ok := finding(steps, "TAKT Time Calculation", "takt_time").(float64); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("takt time is %.2f hours per unit", tt),
			Basis: "TAKT Time Calculation",
		})
	}
	if wp, ok := finding(steps, "Task Sequencing", "pacing_package").(string); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("%s paces the takt train", wp),
			Basis: "Task Sequencing",
		})
	}
	return out
}

func (a *SchedulingEngineer) recommendations(steps []model.ReasoningStep) []model.Recommendation {
	out := []model.Recommendation{}
	if stepOK(steps, "TAKT Time Calculation") {
		out = append(out, model.Recommendation{
			Text:     "fix the takt from available hours over demand and publish it",
			Priority: model.PriorityHigh,
			Kind:     model.KindAction,
		})
	}
	if v, _ := finding(steps, "Overrun Prevention", "buffer").(string); v == "enlarged capacity buffer" {
		out = append(out, model.Recommendation{
			Text:     "enlarge the capacity buffer until adherence recovers",
			Priority: model.PriorityHigh,
			Kind:     model.KindMitigation,
		})
	}
	if v, _ := finding(steps, "Variability Adjustment", "adjustment").(string); v == "lengthen the takt one notch" {
		out = append(out, model.Recommendation{
			Text:     "lengthen the takt one notch while variance is degrading",
			Priority: model.PriorityMedium,
			Kind:     model.KindAction,
		})
	}
	out = append(out, model.Recommendation{
		Text:     "review crew sizing each takt period against demand",
		Priority: model.PriorityLow,
		Kind:     model.KindMetric,
	})
	return out
}
