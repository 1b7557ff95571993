// Package agent implements the six reasoning specialists that analyze a
// project context. Each agent runs a fixed chain of named reasoning steps,
// derives conclusions and recommendations from the step findings, and can
// validate the analyses of its peers.
//
// Agents are structural: every step is a deterministic function of the
// context and its historical records. A step that is missing its inputs
// degrades to an error-tagged entry; the chain never aborts.
package agent

import (
	"context"
	"log/slog"

	"github.com/takuto-ai/takuto/internal/model"
)

// Agent is one reasoning specialist. Analyze never returns an error: a
// degraded analysis with error-tagged steps is still an analysis. Validate
// judges another agent's (or its own) analysis and must be pure, tolerate
// malformed input, and never panic.
type Agent interface {
	Profile() model.AgentProfile
	Analyze(ctx context.Context, actx model.AnalysisContext) model.AgentAnalysis
	Validate(analysis model.AgentAnalysis) bool
}

// stepFunc produces one reasoning step from the context.
type stepFunc func(actx model.AnalysisContext) model.ReasoningStep

type base struct {
	profile model.AgentProfile
	logger  *slog.Logger
}

func newBase(profile model.AgentProfile, logger *slog.Logger) base {
	return base{profile: profile, logger: logger.With("agent", profile.Name)}
}

func (b base) Profile() model.AgentProfile { return b.profile }

// run executes the agent's fixed step chain in order and assembles the
// analysis. Step panics are contained to the step that raised them.
func (b base) run(actx model.AnalysisContext, steps []stepFunc,
	conclude func([]model.ReasoningStep) []model.Conclusion,
	recommend func([]model.ReasoningStep) []model.Recommendation,
) model.AgentAnalysis {
	analysis := model.NewAgentAnalysis(b.profile, actx)
	for _, fn := range steps {
		analysis.ReasoningSteps = append(analysis.ReasoningSteps, b.runStep(fn, actx))
	}
	analysis.Conclusions = conclude(analysis.ReasoningSteps)
	analysis.Recommendations = recommend(analysis.ReasoningSteps)
	b.logger.Debug("analysis complete",
		"project_id", actx.ProjectID,
		"steps", len(analysis.ReasoningSteps),
		"completed", analysis.CompletedSteps(),
	)
	return analysis
}

func (b base) runStep(fn stepFunc, actx model.AnalysisContext) (step model.ReasoningStep) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("reasoning step panicked", "panic", r)
			step = model.ReasoningStep{Name: step.Name, Err: "step panicked"}
		}
	}()
	return fn(actx)
}

// CrossValidate collects each peer's verdict on the analysis and returns a
// copy carrying the results. Self is skipped by name; the input analysis is
// not modified. Result order follows peer order, so a stable roster yields
// a stable result.
func CrossValidate(self Agent, peers []Agent, analysis model.AgentAnalysis) model.AgentAnalysis {
	results := make([]model.CrossValidationResult, 0, len(peers))
	for _, p := range peers {
		if p.Profile().Name == self.Profile().Name {
			continue
		}
		results = append(results, model.CrossValidationResult{
			Validator: p.Profile().Name,
			Validated: p.Validate(analysis),
		})
	}
	return analysis.WithCrossValidation(results)
}

// degraded marks a step that could not run for lack of inputs.
func degraded(name, reason string) model.ReasoningStep {
	return model.ReasoningStep{Name: name, Err: reason}
}

// stepOK reports whether the named step completed with findings.
func stepOK(steps []model.ReasoningStep, name string) bool {
	for _, s := range steps {
		if s.Name == name {
			return !s.Failed()
		}
	}
	return false
}

// finding fetches one named finding from a step, nil when absent or failed.
func finding(steps []model.ReasoningStep, stepName, key string) any {
	for _, s := range steps {
		if s.Name == stepName && !s.Failed() {
			return s.Findings[key]
		}
	}
	return nil
}
