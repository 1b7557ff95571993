package model

// AnalysisContext describes the project under study. It is supplied by the
// caller per orchestration call and is read-only to agents: an agent that
// wants to annotate the context works on a Clone.
//
// Every field is optional. Zero values are the documented fallbacks — a
// reasoning step that needs a field the caller did not provide degrades to
// an error-tagged result instead of failing the analysis.
type AnalysisContext struct {
	ProjectID   string  `json:"project_id,omitempty"`
	ProjectName string  `json:"project_name,omitempty"`
	ProjectSize float64 `json:"project_size,omitempty"` // scope units, e.g. square meters
	Duration    float64 `json:"duration_days,omitempty"`
	TeamSize    int     `json:"team_size,omitempty"`

	// TAKT inputs.
	AvailableHours float64 `json:"available_hours,omitempty"` // working time per period
	DemandUnits    float64 `json:"demand_units,omitempty"`    // units the period must deliver

	Complexity         string   `json:"complexity,omitempty"` // low, medium, high
	HistoricalProjects []string `json:"historical_projects,omitempty"`

	// History carries prior duration observations for predictive steps.
	History []DurationRecord `json:"history,omitempty"`

	// Notes is a free-form bag for fields with no dedicated slot.
	Notes map[string]string `json:"notes,omitempty"`
}

// Clone returns a deep copy. Agents never mutate the caller's context; a
// step that extends the context works on its own copy.
func (c AnalysisContext) Clone() AnalysisContext {
	out := c
	if c.HistoricalProjects != nil {
		out.HistoricalProjects = append([]string(nil), c.HistoricalProjects...)
	}
	if c.History != nil {
		out.History = append([]DurationRecord(nil), c.History...)
	}
	if c.Notes != nil {
		out.Notes = make(map[string]string, len(c.Notes))
		for k, v := range c.Notes {
			out.Notes[k] = v
		}
	}
	return out
}

// HasTaktInputs reports whether the context carries what a TAKT time
// calculation needs.
func (c AnalysisContext) HasTaktInputs() bool {
	return c.AvailableHours > 0 && c.DemandUnits > 0
}

// TaktTime is available working time divided by demand, the target pace a
// work unit must sustain. Zero when demand is absent.
func (c AnalysisContext) TaktTime() float64 {
	if c.DemandUnits <= 0 {
		return 0
	}
	return c.AvailableHours / c.DemandUnits
}
