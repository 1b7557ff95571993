package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/model"
)

// WorkflowSpecialist reasons about process efficiency: bottlenecks,
// variability, workflow structure, and flow validation.
type WorkflowSpecialist struct {
	base
}

// NewWorkflowSpecialist creates the workflow agent for the given profile.
func NewWorkflowSpecialist(profile model.AgentProfile, logger *slog.Logger) *WorkflowSpecialist {
	return &WorkflowSpecialist{base: newBase(profile, logger)}
}

func (a *WorkflowSpecialist) Analyze(_ context.Context, actx model.AnalysisContext) model.AgentAnalysis {
	steps := []stepFunc{
		a.identifyBottlenecks,
		a.analyzeVariability,
		a.optimizeWorkflows,
		a.structureWorkPackages,
		a.validateFlow,
		a.simulateWorkflows,
	}
	return a.run(actx, steps, a.conclusions, a.recommendations)
}

// Validate checks flow evidence, resource utilization, and cycle time data.
func (a *WorkflowSpecialist) Validate(analysis model.AgentAnalysis) bool {
	flow := analysis.CompletedSteps() > 0
	resources := analysis.Context.TeamSize > 0
	cycles := len(analysis.Context.History) > 0
	return flow && resources && cycles
}

func (a *WorkflowSpecialist) identifyBottlenecks(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Bottleneck Analysis", "no historical records")
	}
	bottlenecks := metrics.Bottlenecks(actx.History)
	impact := 0.0
	for _, b := range bottlenecks {
		impact += b.Impact
	}
	return model.ReasoningStep{
		Name: "Bottleneck Analysis",
		Findings: model.Findings{
			"process_mapping":   fmt.Sprintf("%d work records mapped", len(actx.History)),
			"bottleneck_points": bottlenecks,
			"impact_assessment": impact,
		},
	}
}

func (a *WorkflowSpecialist) analyzeVariability(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Process Variability Analysis", "no historical records")
	}
	trend := metrics.VarianceTrend(actx.History)
	causes := []string{}
	if trend.Label == "Degrading" {
		causes = append(causes, "growing cycle time variance")
	}
	return model.ReasoningStep{
		Name: "Process Variability Analysis",
		Findings: model.Findings{
			"cycle_time_analysis": trend,
			"variance_patterns":   trend.Pattern,
			"root_causes":         causes,
		},
	}
}

func (a *WorkflowSpecialist) optimizeWorkflows(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Workflow Optimization", "no historical records")
	}
	flow := metrics.FlowEfficiency(actx.History)
	levers := []string{"level work content across packages"}
	if flow.WastePercentage > 50 {
		levers = append(levers, "attack the largest overrun packages first")
	}
	return model.ReasoningStep{
		Name: "Workflow Optimization",
		Findings: model.Findings{
			"flow_efficiency": flow,
			"levers":          levers,
		},
	}
}

func (a *WorkflowSpecialist) structureWorkPackages(actx model.AnalysisContext) model.ReasoningStep {
	if actx.TeamSize <= 0 {
		return degraded("Work Package Structuring", "team size required")
	}
	zones := actx.TeamSize
	if zones > 8 {
		zones = 8
	}
	return model.ReasoningStep{
		Name: "Work Package Structuring",
		Findings: model.Findings{
			"takt_zones":     zones,
			"sequencing":     "trade trains in fixed zone order",
			"handoff_policy": "zone complete before release",
		},
	}
}

func (a *WorkflowSpecialist) validateFlow(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Flow Validation", "no historical records")
	}
	flow := metrics.FlowEfficiency(actx.History)
	verdict := "flow acceptable"
	if flow.FlowEfficiency < 40 {
		verdict = "flow rework needed"
	}
	return model.ReasoningStep{
		Name: "Flow Validation",
		Findings: model.Findings{
			"flow_efficiency": flow.FlowEfficiency,
			"verdict":         verdict,
		},
	}
}

func (a *WorkflowSpecialist) simulateWorkflows(actx model.AnalysisContext) model.ReasoningStep {
	if !actx.HasTaktInputs() {
		return degraded("Workflow Simulation", "available hours and demand units required")
	}
	takt := actx.TaktTime()
	periods := 0.0
	if takt > 0 {
		periods = actx.AvailableHours / takt
	}
	return model.ReasoningStep{
		Name: "Workflow Simulation",
		Findings: model.Findings{
			"takt_time":        takt,
			"periods_per_week": periods,
		},
	}
}

func (a *WorkflowSpecialist) conclusions(steps []model.ReasoningStep) []model.Conclusion {
	out := []model.Conclusion{}
	if bs, ok := finding(steps, "Bottleneck Analysis", "bottleneck_points").([]metrics.Bottleneck); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("%d bottleneck work packages identified", len(bs)),
			Basis: "Bottleneck Analysis",
		})
	}
	if tr, ok := finding(steps, "Process Variability Analysis", "cycle_time_analysis").(metrics.Trend); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("cycle time variance is %s", tr.Label),
			Basis: "Process Variability Analysis",
		})
	}
	if stepOK(steps, "Flow Validation") {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("%v", finding(steps, "Flow Validation", "verdict")),
			Basis: "Flow Validation",
		})
	}
	return out
}

func (a *WorkflowSpecialist) recommendations(steps []model.ReasoningStep) []model.Recommendation {
	out := []model.Recommendation{}
	if bs, ok := finding(steps, "Bottleneck Analysis", "bottleneck_points").([]metrics.Bottleneck); ok && len(bs) > 0 {
		out = append(out, model.Recommendation{
			Text:     fmt.Sprintf("rebalance the %s package to remove its bottleneck", bs[0].WorkPackage),
			Priority: model.PriorityHigh,
			Kind:     model.KindAction,
		})
	}
	if stepOK(steps, "Work Package Structuring") {
		out = append(out, model.Recommendation{
			Text:     "structure work into fixed takt zones with complete handoffs",
			Priority: model.PriorityMedium,
			Kind:     model.KindAction,
		})
	}
	if v, _ := finding(steps, "Flow Validation", "verdict").(string); v == "flow rework needed" {
		out = append(out, model.Recommendation{
			Text:     "rework the flow plan before scaling the takt",
			Priority: model.PriorityHigh,
			Kind:     model.KindAction,
		})
	}
	out = append(out, model.Recommendation{
		Text:     "monitor flow efficiency per takt period",
		Priority: model.PriorityLow,
		Kind:     model.KindMetric,
	})
	return out
}
