// Package metrics derives TAKT performance indicators from raw operational
// records: adherence, flow efficiency, bottlenecks, variance trend, and a
// short-horizon prediction.
//
// Every computation here is a pure function over a snapshot of records. None
// of them mutate their input, all of them tolerate empty and single-element
// inputs by returning defined sentinels instead of failing, and each is
// independent of the others.
package metrics

import (
	"math"

	"github.com/takuto-ai/takuto/internal/model"
)

const (
	// adherenceTolerance is the overrun ratio still counted as on-pace.
	adherenceTolerance = 1.1
	// bottleneckThreshold flags a work package as a bottleneck.
	bottleneckThreshold = 1.2
	// trendWindow is the moving-average window for variance trends.
	trendWindow = 5
)

// Adherence summarizes how closely actual durations track the plan.
type Adherence struct {
	AverageAdherence float64 `json:"average_adherence"` // % of records within tolerance
	StabilityIndex   float64 `json:"stability_index"`   // 100 − 100·stddev(actual/planned)
}

// Flow summarizes the share of elapsed time that was value-adding.
type Flow struct {
	FlowEfficiency  float64 `json:"flow_efficiency"`
	WastePercentage float64 `json:"waste_percentage"`
}

// Bottleneck is one work package whose actual duration overran plan past
// the bottleneck threshold.
type Bottleneck struct {
	WorkPackage string  `json:"work_package"`
	Factor      float64 `json:"bottleneck_factor"`
	Impact      float64 `json:"impact"` // the record's variance
}

// Trend labels the direction of duration variance over the window.
type Trend struct {
	Label   string    `json:"trend"` // "Improving", "Degrading", or "No data"
	Pattern []float64 `json:"pattern,omitempty"`
}

// Prediction is the next-period variance forecast from a linear fit.
type Prediction struct {
	Prediction *float64 `json:"prediction"` // nil when no data
	Confidence float64  `json:"confidence"` // R² × 100
}

// Bundle is the full derived metric set for one project and time window.
// It is recomputed from records on every query and never persisted.
type Bundle struct {
	TaktAdherence  Adherence    `json:"takt_adherence"`
	FlowEfficiency Flow         `json:"flow_efficiency"`
	Bottlenecks    []Bottleneck `json:"bottleneck_analysis"`
	VarianceTrend  Trend        `json:"variance_trends"`
	Predictive     Prediction   `json:"predictive_metrics"`
}

// TaktAdherence computes the share of records whose actual/planned ratio is
// within tolerance, and a stability index from the spread of those ratios.
// Records with a zero planned duration have an undefined ratio and are
// excluded from both statistics. Empty input yields zeros.
func TaktAdherence(records []model.DurationRecord) Adherence {
	ratios := make([]float64, 0, len(records))
	within := 0
	for _, r := range records {
		if r.PlannedDuration == 0 {
			continue
		}
		ratio := r.ActualDuration / r.PlannedDuration
		ratios = append(ratios, ratio)
		if ratio <= adherenceTolerance {
			within++
		}
	}
	if len(ratios) == 0 {
		return Adherence{}
	}
	return Adherence{
		AverageAdherence: float64(within) / float64(len(ratios)) * 100,
		StabilityIndex:   100 - stddev(ratios)*100,
	}
}

// FlowEfficiency computes the percentage of total actual duration spent in
// records that finished on or under plan (variance <= 0). Zero total time
// yields zero efficiency rather than a division error.
func FlowEfficiency(records []model.DurationRecord) Flow {
	if len(records) == 0 {
		return Flow{}
	}
	var total, valueAdded float64
	for _, r := range records {
		total += r.ActualDuration
		if r.Variance <= 0 {
			valueAdded += r.ActualDuration
		}
	}
	if total == 0 {
		return Flow{FlowEfficiency: 0, WastePercentage: 100}
	}
	eff := valueAdded / total * 100
	return Flow{FlowEfficiency: eff, WastePercentage: 100 - eff}
}

// Bottlenecks returns the records whose bottleneck factor exceeds the
// threshold, in original record order. Records with an undefined factor
// (zero planned duration) are never flagged.
func Bottlenecks(records []model.DurationRecord) []Bottleneck {
	out := []Bottleneck{}
	for _, r := range records {
		if r.PlannedDuration == 0 {
			continue
		}
		if r.BottleneckFactor > bottleneckThreshold {
			out = append(out, Bottleneck{
				WorkPackage: r.WorkPackage,
				Factor:      r.BottleneckFactor,
				Impact:      r.Variance,
			})
		}
	}
	return out
}

// VarianceTrend computes a trailing moving average of variance (window 5,
// expanding until enough points accumulate) and labels the trend Improving
// when the last averaged value sits strictly below the first. Empty input
// yields the "No data" sentinel.
func VarianceTrend(records []model.DurationRecord) Trend {
	if len(records) == 0 {
		return Trend{Label: "No data"}
	}
	pattern := make([]float64, len(records))
	var sum float64
	for i, r := range records {
		sum += r.Variance
		if i >= trendWindow {
			sum -= records[i-trendWindow].Variance
		}
		n := i + 1
		if n > trendWindow {
			n = trendWindow
		}
		pattern[i] = sum / float64(n)
	}
	label := "Degrading"
	if pattern[len(pattern)-1] < pattern[0] {
		label = "Improving"
	}
	return Trend{Label: label, Pattern: pattern}
}

// PredictVariance fits an ordinary least-squares line of variance against
// the 0-based record index and extrapolates one period ahead. Confidence is
// the fit's coefficient of determination scaled to a percentage. Empty
// input yields a nil prediction; a single point predicts itself with zero
// confidence.
func PredictVariance(records []model.DurationRecord) Prediction {
	n := len(records)
	if n == 0 {
		return Prediction{}
	}
	if n == 1 {
		v := records[0].Variance
		return Prediction{Prediction: &v, Confidence: 0}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, r := range records {
		x := float64(i)
		sumX += x
		sumY += r.Variance
		sumXY += x * r.Variance
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	next := slope*float64(n) + intercept

	// R² = 1 − SSres/SStot. A constant series with a perfect fit counts as
	// fully explained; a constant series the line misses counts as zero.
	mean := sumY / fn
	var ssRes, ssTot float64
	for i, r := range records {
		fit := slope*float64(i) + intercept
		ssRes += (r.Variance - fit) * (r.Variance - fit)
		ssTot += (r.Variance - mean) * (r.Variance - mean)
	}
	var r2 float64
	switch {
	case ssTot > 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	}
	if r2 < 0 {
		r2 = 0
	}

	return Prediction{Prediction: &next, Confidence: r2 * 100}
}

// Compute derives the full bundle from one snapshot of duration records.
func Compute(records []model.DurationRecord) Bundle {
	return Bundle{
		TaktAdherence:  TaktAdherence(records),
		FlowEfficiency: FlowEfficiency(records),
		Bottlenecks:    Bottlenecks(records),
		VarianceTrend:  VarianceTrend(records),
		Predictive:     PredictVariance(records),
	}
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)))
}
