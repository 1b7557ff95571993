package model

import (
	"time"

	"github.com/google/uuid"
)

// AgentProfile is an agent's identity: display name, expertise label, the
// backing model identifier, and the credential used to reach it. Immutable
// after construction; each agent instance owns exactly one profile.
type AgentProfile struct {
	Name      string `json:"name"`
	Expertise string `json:"expertise"`
	Model     string `json:"model"`
	APIKey    string `json:"-"`
}

// Priority orders recommendations during synthesis.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PriorityRank returns the numeric rank of a priority (lower = sooner).
// Unknown priorities sort last.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// RecommendationKind routes a recommendation into the right synthesis bucket.
type RecommendationKind string

const (
	KindStrategic  RecommendationKind = "strategic"
	KindAction     RecommendationKind = "action"
	KindMitigation RecommendationKind = "mitigation"
	KindMetric     RecommendationKind = "metric"
)

// Findings is the structured output of one reasoning step: a small mapping
// of named sub-analyses to their values.
type Findings map[string]any

// ReasoningStep is one named stage of an agent's fixed analysis sequence.
// Order within an analysis is meaningful: later steps may build on earlier
// ones. A step that could not produce a result carries Err instead of
// raising — partial analyses are valid.
type ReasoningStep struct {
	Name     string   `json:"step"`
	Findings Findings `json:"analysis,omitempty"`
	Err      string   `json:"error,omitempty"`
}

// Failed reports whether the step degraded to an error marker.
func (s ReasoningStep) Failed() bool { return s.Err != "" }

// Conclusion is a statement an agent derives from its reasoning steps.
type Conclusion struct {
	Text  string `json:"text"`
	Basis string `json:"basis"` // name of the reasoning step it follows from
}

// Recommendation is an actionable suggestion an agent derives from its
// reasoning steps.
type Recommendation struct {
	Text     string             `json:"text"`
	Priority Priority           `json:"priority"`
	Kind     RecommendationKind `json:"kind"`
}

// CrossValidationResult records one peer agent's verdict on an analysis.
type CrossValidationResult struct {
	Validator string `json:"validator"`
	Validated bool   `json:"validated"`
}

// AgentAnalysis is the full output of one agent's Analyze call. It is
// created fresh per call and treated as an immutable value afterwards:
// cross-validation appends results to a structural copy, never in place,
// so concurrent validators cannot race.
type AgentAnalysis struct {
	ID                    uuid.UUID               `json:"id"`
	AgentName             string                  `json:"agent_name"`
	Expertise             string                  `json:"expertise"`
	Context               AnalysisContext         `json:"context"`
	ReasoningSteps        []ReasoningStep         `json:"reasoning_steps"`
	Conclusions           []Conclusion            `json:"conclusions"`
	Recommendations       []Recommendation        `json:"recommendations"`
	Validation            map[string]any          `json:"validation,omitempty"`
	CrossValidationNeeded bool                    `json:"cross_validation_needed"`
	CrossValidation       []CrossValidationResult `json:"cross_validation_results,omitempty"`
	CreatedAt             time.Time               `json:"created_at"`
}

// NewAgentAnalysis initializes the base analysis record an Analyze call
// starts from: identity plus empty reasoning, conclusion, and
// recommendation sets, with cross-validation always requested.
func NewAgentAnalysis(profile AgentProfile, actx AnalysisContext) AgentAnalysis {
	return AgentAnalysis{
		ID:                    uuid.New(),
		AgentName:             profile.Name,
		Expertise:             profile.Expertise,
		Context:               actx.Clone(),
		ReasoningSteps:        []ReasoningStep{},
		Conclusions:           []Conclusion{},
		Recommendations:       []Recommendation{},
		Validation:            map[string]any{},
		CrossValidationNeeded: true,
		CreatedAt:             time.Now().UTC(),
	}
}

// Step looks up a reasoning step by name.
func (a AgentAnalysis) Step(name string) (ReasoningStep, bool) {
	for _, s := range a.ReasoningSteps {
		if s.Name == name {
			return s, true
		}
	}
	return ReasoningStep{}, false
}

// CompletedSteps counts reasoning steps that did not degrade to an error.
func (a AgentAnalysis) CompletedSteps() int {
	n := 0
	for _, s := range a.ReasoningSteps {
		if !s.Failed() {
			n++
		}
	}
	return n
}

// WithCrossValidation returns a copy of the analysis with the given peer
// results appended. The receiver is not modified.
func (a AgentAnalysis) WithCrossValidation(results []CrossValidationResult) AgentAnalysis {
	out := a.Clone()
	out.CrossValidation = append(out.CrossValidation, results...)
	return out
}

// Clone returns a structural copy sharing no mutable state with the receiver.
func (a AgentAnalysis) Clone() AgentAnalysis {
	out := a
	out.Context = a.Context.Clone()
	if a.ReasoningSteps != nil {
		out.ReasoningSteps = make([]ReasoningStep, len(a.ReasoningSteps))
		for i, s := range a.ReasoningSteps {
			out.ReasoningSteps[i] = s.clone()
		}
	}
	if a.Conclusions != nil {
		out.Conclusions = append([]Conclusion(nil), a.Conclusions...)
	}
	if a.Recommendations != nil {
		out.Recommendations = append([]Recommendation(nil), a.Recommendations...)
	}
	if a.Validation != nil {
		out.Validation = make(map[string]any, len(a.Validation))
		for k, v := range a.Validation {
			out.Validation[k] = v
		}
	}
	if a.CrossValidation != nil {
		out.CrossValidation = append([]CrossValidationResult(nil), a.CrossValidation...)
	}
	return out
}

func (s ReasoningStep) clone() ReasoningStep {
	out := s
	if s.Findings != nil {
		out.Findings = make(Findings, len(s.Findings))
		for k, v := range s.Findings {
			out.Findings[k] = v
		}
	}
	return out
}
