package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/takuto-ai/takuto/internal/model"
)

// trainingModule is one role-targeted training unit.
type trainingModule struct {
	Module         string   `json:"module"`
	TargetAudience string   `json:"target_audience"`
	Duration       string   `json:"duration"`
	Content        []string `json:"content"`
}

// ImplementationSpecialist reasons about adoption: readiness, training,
// change management, feedback, and adoption measurement.
type ImplementationSpecialist struct {
	base
}

// NewImplementationSpecialist creates the adoption agent for the given profile.
func NewImplementationSpecialist(profile model.AgentProfile, logger *slog.Logger) *ImplementationSpecialist {
	return &ImplementationSpecialist{base: newBase(profile, logger)}
}

func (a *ImplementationSpecialist) Analyze(_ context.Context, actx model.AnalysisContext) model.AgentAnalysis {
	steps := []stepFunc{
		a.assessReadiness,
		a.developTraining,
		a.designChangeManagement,
		a.customizeStakeholderTraining,
		a.implementFeedback,
		a.measureAdoption,
	}
	return a.run(actx, steps, a.conclusions, a.recommendations)
}

// Validate checks training coverage, change management, and adoption
// metrics.
func (a *ImplementationSpecialist) Validate(analysis model.AgentAnalysis) bool {
	training := analysis.CompletedSteps() > 0
	change := analysis.Context.TeamSize > 0
	adoption := len(analysis.Recommendations) > 0
	return training && change && adoption
}

func (a *ImplementationSpecialist) assessReadiness(actx model.AnalysisContext) model.ReasoningStep {
	if actx.TeamSize <= 0 {
		return degraded("Organizational Readiness Assessment", "team size required")
	}
	readiness := "ready"
	if len(actx.HistoricalProjects) == 0 {
		readiness = "needs-preparation"
	}
	return model.ReasoningStep{
		Name: "Organizational Readiness Assessment",
		Findings: model.Findings{
			"current_capabilities": fmt.Sprintf("%d staff, %d prior projects", actx.TeamSize, len(actx.HistoricalProjects)),
			"training_needs":       actx.TeamSize,
			"cultural_factors":     readiness,
		},
	}
}

func (a *ImplementationSpecialist) developTraining(actx model.AnalysisContext) model.ReasoningStep {
	modules := []trainingModule{
		{
			Module:         "TAKT Fundamentals",
			TargetAudience: "All Staff",
			Duration:       "4 hours",
			Content:        []string{"Introduction to TAKT Planning", "Basic Principles and Concepts", "Benefits and Applications"},
		},
		{
			Module:         "Advanced TAKT Planning",
			TargetAudience: "Project Managers",
			Duration:       "8 hours",
			Content:        []string{"TAKT Time Calculation", "Resource Optimization", "Schedule Integration"},
		},
		{
			Module:         "TAKT Implementation",
			TargetAudience: "Field Supervisors",
			Duration:       "6 hours",
			Content:        []string{"Daily Planning and Control", "Team Coordination", "Problem Solving"},
		},
	}
	return model.ReasoningStep{
		Name: "Training Module Development",
		Findings: model.Findings{
			"module_structure":    modules,
			"learning_objectives": "every role can read and act on the takt plan",
			"delivery_methods":    []string{"classroom", "on-site coaching"},
		},
	}
}

func (a *ImplementationSpecialist) designChangeManagement(actx model.AnalysisContext) model.ReasoningStep {
	if actx.Duration <= 0 {
		return degraded("Change Management Design", "duration required")
	}
	return model.ReasoningStep{
		Name: "Change Management Design",
		Findings: model.Findings{
			"sponsor":        "project leadership",
			"communication":  "takt board visible on site, daily huddle",
			"rollout_window": fmt.Sprintf("first %.0f days", actx.Duration/3),
		},
	}
}

func (a *ImplementationSpecialist) customizeStakeholderTraining(actx model.AnalysisContext) model.ReasoningStep {
	audiences := []string{"owners", "trade partners"}
	if actx.TeamSize > 20 {
		audiences = append(audiences, "crew leads")
	}
	return model.ReasoningStep{
		Name: "Stakeholder Training Customization",
		Findings: model.Findings{
			"audiences": audiences,
			"format":    "role-specific briefings",
		},
	}
}

func (a *ImplementationSpecialist) implementFeedback(actx model.AnalysisContext) model.ReasoningStep {
	return model.ReasoningStep{
		Name: "Feedback System Implementation",
		Findings: model.Findings{
			"channel":   "end-of-takt retrospective",
			"loop_time": "one takt period",
		},
	}
}

func (a *ImplementationSpecialist) measureAdoption(actx model.AnalysisContext) model.ReasoningStep {
	return model.ReasoningStep{
		Name: "Adoption Success Measurement",
		Findings: model.Findings{
			"metrics": []string{"training completion rate", "huddle attendance", "plan-versus-actual adherence"},
			"review":  "monthly adoption scorecard",
		},
	}
}

func (a *ImplementationSpecialist) conclusions(steps []model.ReasoningStep) []model.Conclusion {
	out := []model.Conclusion{}
	if r, ok := finding(steps, "Organizational Readiness Assessment", "cultural_factors").(string); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("organization is %s for takt adoption", r),
			Basis: "Organizational Readiness Assessment",
		})
	}
	if ms, ok := finding(steps, "Training Module Development", "module_structure").([]trainingModule); ok {
		out = append(out, model.Conclusion{
			Text:  fmt.Sprintf("%d training modules scoped", len(ms)),
			Basis: "Training Module Development",
		})
	}
	return out
}

func (a *ImplementationSpecialist) recommendations(steps []model.ReasoningStep) []model.Recommendation {
	out := []model.Recommendation{
		{
			Text:     "run takt fundamentals training for all staff before the pilot",
			Priority: model.PriorityHigh,
			Kind:     model.KindAction,
		},
	}
	if v, _ := finding(steps, "Organizational Readiness Assessment", "cultural_factors").(string); v == "needs-preparation" {
		out = append(out, model.Recommendation{
			Text:     "schedule a readiness workshop before committing the rollout date",
			Priority: model.PriorityHigh,
			Kind:     model.KindAction,
		})
	}
	if stepOK(steps, "Feedback System Implementation") {
		out = append(out, model.Recommendation{
			Text:     "hold an end-of-takt retrospective every period",
			Priority: model.PriorityMedium,
			Kind:     model.KindAction,
		})
	}
	out = append(out, model.Recommendation{
		Text:     "report the adoption scorecard monthly",
		Priority: model.PriorityLow,
		Kind:     model.KindMetric,
	})
	return out
}
