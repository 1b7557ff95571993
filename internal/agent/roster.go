package agent

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/takuto-ai/takuto/internal/model"
)

// Agent roles understood by Build.
const (
	RoleStrategy       = "strategy_architect"
	RoleWorkflow       = "workflow_specialist"
	RoleScheduling     = "scheduling_engineer"
	RoleAnalyst        = "data_analyst"
	RoleRisk           = "risk_controller"
	RoleImplementation = "implementation_specialist"
)

// RosterEntry declares one agent in a roster file. APIKeyEnv names the
// environment variable holding the backing model credential; the key itself
// never appears in the file.
type RosterEntry struct {
	Role      string `toml:"role"`
	Name      string `toml:"name"`
	Expertise string `toml:"expertise"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
}

// Roster is the declarative agent lineup, loaded from TOML or built in.
type Roster struct {
	Agents []RosterEntry `toml:"agents"`
}

// LoadRoster reads a roster from a TOML file.
func LoadRoster(path string) (Roster, error) {
	var r Roster
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return Roster{}, fmt.Errorf("agent: load roster %s: %w", path, err)
	}
	if len(r.Agents) == 0 {
		return Roster{}, fmt.Errorf("agent: load roster %s: no agents declared", path)
	}
	return r, nil
}

// DefaultRoster is the built-in six-agent lineup used when no roster file
// is configured.
func DefaultRoster() Roster {
	return Roster{Agents: []RosterEntry{
		{
			Role:      RoleStrategy,
			Name:      "Dr. TAKT Strategy Architect",
			Expertise: "Portfolio & Enterprise-Level TAKT Implementation",
			Model:     "gpt-4-turbo",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		{
			Role:      RoleWorkflow,
			Name:      "Dr. Workflow Optimization Specialist",
			Expertise: "Process Efficiency & Flow Synchronization",
			Model:     "claude-3",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		{
			Role:      RoleScheduling,
			Name:      "Dr. TAKT Scheduling & Resource Engineer",
			Expertise: "Advanced Scheduling & Resource Allocation",
			Model:     "mixtral-8x7b",
			APIKeyEnv: "GROQ_API_KEY",
		},
		{
			Role:      RoleAnalyst,
			Name:      "Dr. AI-Driven TAKT Data Analyst",
			Expertise: "Predictive Analytics & AI Optimization",
			Model:     "gemini-pro",
			APIKeyEnv: "GOOGLE_API_KEY",
		},
		{
			Role:      RoleRisk,
			Name:      "Dr. Risk & Variability Controller",
			Expertise: "TAKT Risk Management & Adaptability",
			Model:     "command",
			APIKeyEnv: "COHERE_API_KEY",
		},
		{
			Role:      RoleImplementation,
			Name:      "Dr. Implementation & Training Specialist",
			Expertise: "TAKT Adoption & Change Management",
			Model:     "emergence-latest",
			APIKeyEnv: "EMERGENCEAI_API_KEY",
		},
	}}
}

// Build constructs agents from a roster, in declaration order. The roster
// order is significant: it decides the tie-break ordering of synthesized
// recommendations downstream. Duplicate names and unknown roles are errors.
func Build(r Roster, logger *slog.Logger) ([]Agent, error) {
	agents := make([]Agent, 0, len(r.Agents))
	seen := map[string]bool{}
	for _, e := range r.Agents {
		if e.Name == "" {
			return nil, fmt.Errorf("agent: roster entry with role %q has no name", e.Role)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("agent: duplicate roster name %q", e.Name)
		}
		seen[e.Name] = true

		profile := model.AgentProfile{
			Name:      e.Name,
			Expertise: e.Expertise,
			Model:     e.Model,
			APIKey:    os.Getenv(e.APIKeyEnv),
		}
		switch e.Role {
		case RoleStrategy:
			agents = append(agents, NewStrategyArchitect(profile, logger))
		case RoleWorkflow:
			agents = append(agents, NewWorkflowSpecialist(profile, logger))
		case RoleScheduling:
			agents = append(agents, NewSchedulingEngineer(profile, logger))
		case RoleAnalyst:
			agents = append(agents, NewDataAnalyst(profile, logger))
		case RoleRisk:
			agents = append(agents, NewRiskController(profile, logger))
		case RoleImplementation:
			agents = append(agents, NewImplementationSpecialist(profile, logger))
		default:
			return nil, fmt.Errorf("agent: unknown roster role %q", e.Role)
		}
	}
	return agents, nil
}
