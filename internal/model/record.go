// Package model defines the core domain types for Takuto: operational
// records ingested per project, and the analysis structures produced by
// the reasoning agents.
package model

import (
	"fmt"
	"time"
)

// RiskStatus is the lifecycle state of a tracked risk.
type RiskStatus string

const (
	RiskActive    RiskStatus = "Active"
	RiskMitigated RiskStatus = "Mitigated"
)

// DurationRecord is one planned-vs-actual duration observation for a work
// package. Records are append-only: ingestion writes them, the metrics
// engine reads them, nothing mutates or deletes them.
type DurationRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	WorkPackage      string    `json:"work_package"`
	PlannedDuration  float64   `json:"planned_duration"`
	ActualDuration   float64   `json:"actual_duration"`
	Variance         float64   `json:"variance"`
	BottleneckFactor float64   `json:"bottleneck_factor"` // 0 when PlannedDuration == 0 (undefined)
	ProjectID        string    `json:"project_id"`
}

// NewDurationRecord builds a duration record with the derived fields filled
// in. BottleneckFactor is left at zero when planned is zero; consumers must
// treat that as undefined rather than "no bottleneck".
func NewDurationRecord(ts time.Time, projectID, workPackage string, planned, actual float64) DurationRecord {
	r := DurationRecord{
		Timestamp:       ts,
		WorkPackage:     workPackage,
		PlannedDuration: planned,
		ActualDuration:  actual,
		Variance:        actual - planned,
		ProjectID:       projectID,
	}
	if planned != 0 {
		r.BottleneckFactor = actual / planned
	}
	return r
}

// UtilizationRecord is one planned-vs-actual observation for a resource type.
type UtilizationRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	ResourceType string    `json:"resource_type"`
	Planned      float64   `json:"planned"`
	Actual       float64   `json:"actual"`
	Efficiency   float64   `json:"efficiency"` // actual/planned*100; 0 when planned == 0
	ProjectID    string    `json:"project_id"`
}

// NewUtilizationRecord builds a utilization record with efficiency derived.
func NewUtilizationRecord(ts time.Time, projectID, resourceType string, planned, actual float64) UtilizationRecord {
	r := UtilizationRecord{
		Timestamp:    ts,
		ResourceType: resourceType,
		Planned:      planned,
		Actual:       actual,
		ProjectID:    projectID,
	}
	if planned != 0 {
		r.Efficiency = actual / planned * 100
	}
	return r
}

// RiskRecord is one snapshot entry in a project's risk register. Only the
// most recent snapshot per project is considered current.
type RiskRecord struct {
	Timestamp      time.Time  `json:"timestamp"`
	RiskType       string     `json:"risk_type"`
	Probability    float64    `json:"probability"` // [0,1]
	Impact         float64    `json:"impact"`      // [0,1]
	Status         RiskStatus `json:"status"`
	MitigationPlan string     `json:"mitigation_plan"`
	ProjectID      string     `json:"project_id"`
}

// Validate checks a risk record before it is written.
func (r RiskRecord) Validate() error {
	if r.RiskType == "" {
		return fmt.Errorf("model: risk_type is required")
	}
	if r.Probability < 0 || r.Probability > 1 {
		return fmt.Errorf("model: probability must be in [0,1], got %v", r.Probability)
	}
	if r.Impact < 0 || r.Impact > 1 {
		return fmt.Errorf("model: impact must be in [0,1], got %v", r.Impact)
	}
	switch r.Status {
	case RiskActive, RiskMitigated:
	default:
		return fmt.Errorf("model: unknown risk status %q", r.Status)
	}
	return nil
}

// Severity is the probability-weighted impact of a risk, used to order risk
// registers in reports.
func (r RiskRecord) Severity() float64 {
	return r.Probability * r.Impact
}
