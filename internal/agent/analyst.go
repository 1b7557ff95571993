package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/takuto-ai/takuto/internal/metrics"
	"github.com/takuto-ai/takuto/internal/model"
)

// DataAnalyst reasons over historical records: data collection, predictive
// modeling, risk signals, resource optimization, and scenario comparison.
type DataAnalyst struct {
	base
}

// NewDataAnalyst creates the analytics agent for the given profile.
func NewDataAnalyst(profile model.AgentProfile, logger *slog.Logger) *DataAnalyst {
	return &DataAnalyst{base: newBase(profile, logger)}
}

func (a *DataAnalyst) Analyze(_ context.Context, actx model.AnalysisContext) model.AgentAnalysis {
	steps := []stepFunc{
		a.collectHistoricalData,
		a.predictPerformance,
		a.identifyRisks,
		a.optimizeResources,
		a.automateDecisions,
		a.compareScenarios,
	}
	return a.run(actx, steps, a.conclusions, a.recommendations)
}

// Validate checks data quality, model performance, and prediction evidence.
func (a *DataAnalyst) Validate(analysis model.AgentAnalysis) bool {
	quality := len(analysis.Context.History) > 0
	performance := analysis.CompletedSteps() > 0
	predictions := len(analysis.Conclusions) > 0
	return quality && performance && predictions
}

func (a *DataAnalyst) collectHistoricalData(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Historical Data Collection", "no historical records")
	}
	packages := map[string]int{}
	for _, r := range actx.History {
		packages[r.WorkPackage]++
	}
	return model.ReasoningStep{
		Name: "Historical Data Collection",
		Findings: model.Findings{
			"project_data":        len(actx.History),
			"performance_metrics": metrics.TaktAdherence(actx.History),
			"patterns":            fmt.Sprintf("%d distinct work packages", len(packages)),
		},
	}
}

func (a *DataAnalyst) predictPerformance(actx model.AnalysisContext) model.ReasoningStep {
	modelFit, err := trainDurationModel(actx.History)
	if err != nil {
		return degraded("Performance Prediction", "insufficient data for model training")
	}
	return model.ReasoningStep{
		Name: "Performance Prediction",
		Findings: model.Findings{
			"model_results":    modelFit,
			"accuracy_metrics": map[string]float64{"mse": modelFit.MSE, "r2": modelFit.R2},
			"predictions":      modelFit.Predictions,
		},
	}
}

func (a *DataAnalyst) identifyRisks(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Risk Identification", "no historical records")
	}
	pred := metrics.PredictVariance(actx.History)
	signal := "variance stable"
	if pred.Prediction != nil && *pred.Prediction > 0 {
		signal = "variance rising"
	}
	return model.ReasoningStep{
		Name: "Risk Identification",
		Findings: model.Findings{
			"variance_forecast": pred,
			"signal":            signal,
		},
	}
}

func (a *DataAnalyst) optimizeResources(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Resource Optimization", "no historical records")
	}
	flow := metrics.FlowEfficiency(actx.History)
	return model.ReasoningStep{
		Name: "Resource Optimization",
		Findings: model.Findings{
			"flow_efficiency":   flow.FlowEfficiency,
			"waste_percentage":  flow.WastePercentage,
			"reallocation_hint": "shift capacity from on-pace to overrun packages",
		},
	}
}

func (a *DataAnalyst) automateDecisions(actx model.AnalysisContext) model.ReasoningStep {
	if len(actx.History) == 0 {
		return degraded("Decision Automation", "no historical records")
	}
	bottlenecks := metrics.Bottlenecks(actx.History)
	rules := []string{"flag any package whose overrun factor exceeds the bottleneck threshold"}
	if len(bottlenecks) > 0 {
		rules = append(rules, "escalate repeated bottleneck packages to the steering review")
	}
	return model.ReasoningStep{
		Name: "Decision Automation",
		Findings: model.Findings{
			"trigger_rules": rules,
			"open_flags":    len(bottlenecks),
		},
	}
}

func (a *DataAnalyst) compareScenarios(actx model.AnalysisContext) model.ReasoningStep {
	if !actx.HasTaktInputs() || len(actx.History) == 0 {
		return degraded("Scenario Comparison", "takt inputs and history required")
	}
	baseTakt := actx.TaktTime()
	return model.ReasoningStep{
		Name: "Scenario Comparison",
		Findings: model.Findings{
			"base_takt":    baseTakt,
			"slower_takt":  baseTakt * 1.1,
			"faster_takt":  baseTakt * 0.9,
			"chosen_basis": "base takt until adherence stabilizes",
		},
	}
}

func (a *DataAnalyst) conclusions(steps []model.ReasoningStep) []model.Conclusion {
	out := []model.Conclusion{}
	if m, ok := finding(steps, "Performance Prediction", "model_results").(durationModel); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("duration model explains %.0f%% of holdout variance", m.R2*100),
			Basis: "Performance Prediction",
		})
	}
	if sig, ok := finding(steps, "Risk Identification", "signal").(string); ok {
		out = append(out, model.Conclusion{
			Text:  sig,
			Basis: "Risk Identification",
		})
	}
	if n, ok := finding(steps, "Historical Data Collection", "project_data").(int); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("baseline built from %d records", n),
			Basis: "Historical Data Collection",
		})
	}
	return out
}

func (a *DataAnalyst) recommendations(steps []model.ReasoningStep) []model.Recommendation {
	out := []model.Recommendation{}
	if sig, _ := finding(steps, "Risk Identification", "signal").(string); sig == "variance rising" {
		out = append(out, model.Recommendation{
			Text:     "intervene on variance drivers before the next takt period",
			Priority: model.PriorityHigh,
			Kind:     model.KindMitigation,
		})
	}
	if stepOK(steps, "Performance Prediction") {
		out = append(out, model.Recommendation{
			Text:     "retrain the duration model as new records arrive",
			Priority: model.PriorityLow,
			Kind:     model.KindAction,
		})
	}
	out = append(out, model.Recommendation{
		Text:     "track prediction error against realized durations",
		Priority: model.PriorityMedium,
		Kind:     model.KindMetric,
	})
	return out
}
