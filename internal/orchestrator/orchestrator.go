// Package orchestrator runs the agent roster against a project context:
// parallel individual analyses, all-pairs cross-validation, then a
// deterministic synthesis of the combined recommendations.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/takuto-ai/takuto/internal/agent"
	"github.com/takuto-ai/takuto/internal/model"
	"github.com/takuto-ai/takuto/internal/telemetry"
)

// Result is the full output of one orchestration call. IndividualAnalyses
// holds one entry per registered agent, in roster order, each carrying its
// peers' cross-validation verdicts.
type Result struct {
	ID                 uuid.UUID             `json:"id"`
	IndividualAnalyses []model.AgentAnalysis `json:"individual_analyses"`
	Synthesized        Synthesis             `json:"synthesized_recommendations"`
	ProjectContext     model.AnalysisContext `json:"project_context"`
	CreatedAt          time.Time             `json:"created_at"`
}

// Orchestrator owns its agent roster. The roster is fixed at construction;
// roster order decides tie-breaks during synthesis.
type Orchestrator struct {
	agents []agent.Agent
	logger *slog.Logger

	analyses        metric.Int64Counter
	analyzeDuration metric.Float64Histogram
}

// New creates an orchestrator over the given roster.
func New(agents []agent.Agent, logger *slog.Logger) (*Orchestrator, error) {
	if len(agents) == 0 {
		return nil, errors.New("orchestrator: empty agent roster")
	}
	meter := telemetry.Meter("takuto/orchestrator")
	analyses, _ := meter.Int64Counter("takuto.orchestrator.analyses",
		metric.WithDescription("Completed orchestration calls"),
	)
	analyzeDur, _ := meter.Float64Histogram("takuto.orchestrator.analyze.duration",
		metric.WithDescription("End-to-end orchestration duration (ms)"),
		metric.WithUnit("ms"),
	)
	return &Orchestrator{
		agents:          agents,
		logger:          logger,
		analyses:        analyses,
		analyzeDuration: analyzeDur,
	}, nil
}

// Agents returns the roster in registration order.
func (o *Orchestrator) Agents() []agent.Agent { return o.agents }

// AnalyzeProject fans the context out to every agent in parallel, collects
// all-pairs cross-validation verdicts, and synthesizes the combined
// recommendations. An agent that panics contributes an inert empty analysis;
// the call fails only on context cancellation.
func (o *Orchestrator) AnalyzeProject(ctx context.Context, actx model.AnalysisContext) (Result, error) {
	began := time.Now()
	analyses := make([]model.AgentAnalysis, len(o.agents))

	g, gctx := errgroup.WithContext(ctx)
	for i, ag := range o.agents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			analyses[i] = o.analyzeOne(gctx, ag, actx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	// Every analysis is validated by every other agent. Each slot writes
	// only its own copy, so the fan-out needs no locking.
	g, gctx = errgroup.WithContext(ctx)
	for i := range analyses {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			analyses[i] = agent.CrossValidate(o.agents[i], o.agents, analyses[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{
		ID:                 uuid.New(),
		IndividualAnalyses: analyses,
		Synthesized:        synthesize(analyses),
		ProjectContext:     actx.Clone(),
		CreatedAt:          time.Now().UTC(),
	}

	o.analyses.Add(ctx, 1)
	o.analyzeDuration.Record(ctx, float64(time.Since(began).Milliseconds()))
	o.logger.Info("project analysis complete",
		"project_id", actx.ProjectID,
		"result_id", result.ID,
		"agents", len(o.agents),
		"duration_ms", time.Since(began).Milliseconds(),
	)
	return result, nil
}

// analyzeOne runs a single agent, converting a panic into an inert empty
// analysis so one misbehaving agent cannot sink the whole orchestration.
func (o *Orchestrator) analyzeOne(ctx context.Context, ag agent.Agent, actx model.AnalysisContext) (analysis model.AgentAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("agent panicked during analysis",
				"agent", ag.Profile().Name,
				"panic", r,
			)
			analysis = model.NewAgentAnalysis(ag.Profile(), actx)
		}
	}()
	return ag.Analyze(ctx, actx)
}
