package agent

import (
	"errors"
	"math"

	"github.com/takuto-ai/takuto/internal/model"
)

// minTrainingSamples is the fewest history records a model fit accepts:
// enough for a nonempty holdout after an 80/20 split.
const minTrainingSamples = 5

var errInsufficientData = errors.New("agent: insufficient data for model training")

// durationModel is a least-squares fit of actual duration against planned
// duration and sequence position, evaluated on a held-out tail split.
type durationModel struct {
	Coefficients      map[string]float64 `json:"coefficients"`
	Intercept         float64            `json:"intercept"`
	MSE               float64            `json:"mse"`
	R2                float64            `json:"r2"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Predictions       []float64          `json:"predictions"`
}

var durationFeatures = []string{"planned_duration", "sequence_index"}

// trainDurationModel fits the model on the first 80% of history in record
// order and reports MSE and R2 on the remaining 20%. The split is
// positional, so the holdout is always the most recent records.
func trainDurationModel(history []model.DurationRecord) (durationModel, error) {
	n := len(history)
	if n < minTrainingSamples {
		return durationModel{}, errInsufficientData
	}

	features := make([][]float64, n)
	target := make([]float64, n)
	for i, r := range history {
		features[i] = []float64{r.PlannedDuration, float64(i)}
		target[i] = r.ActualDuration
	}

	split := n * 4 / 5
	coefs, intercept, ok := leastSquares(features[:split], target[:split])
	if !ok {
		return durationModel{}, errInsufficientData
	}

	predictions := make([]float64, 0, n-split)
	var ssRes, ssTot, sumY float64
	for i := split; i < n; i++ {
		pred := intercept
		for j, c := range coefs {
			pred += c * features[i][j]
		}
		predictions = append(predictions, pred)
		sumY += target[i]
		ssRes += (target[i] - pred) * (target[i] - pred)
	}
	meanY := sumY / float64(n-split)
	for i := split; i < n; i++ {
		ssTot += (target[i] - meanY) * (target[i] - meanY)
	}

	var r2 float64
	switch {
	case ssTot > 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	}

	m := durationModel{
		Coefficients:      map[string]float64{},
		Intercept:         intercept,
		MSE:               ssRes / float64(n-split),
		R2:                r2,
		FeatureImportance: featureImportance(features[:split], coefs),
		Predictions:       predictions,
	}
	for j, name := range durationFeatures {
		m.Coefficients[name] = coefs[j]
	}
	return m, nil
}

// featureImportance scales each coefficient by its feature's spread over
// the training rows and normalizes to a unit sum.
func featureImportance(features [][]float64, coefs []float64) map[string]float64 {
	raw := make([]float64, len(coefs))
	total := 0.0
	for j := range coefs {
		col := make([]float64, len(features))
		for i, row := range features {
			col[i] = row[j]
		}
		raw[j] = math.Abs(coefs[j]) * popStddev(col)
		total += raw[j]
	}
	out := map[string]float64{}
	for j, name := range durationFeatures {
		if total > 0 {
			out[name] = raw[j] / total
		} else {
			out[name] = 0
		}
	}
	return out
}

// leastSquares solves the normal equations for a linear fit with intercept.
// Returns ok=false when the system is singular (degenerate features).
func leastSquares(features [][]float64, target []float64) (coefs []float64, intercept float64, ok bool) {
	n := len(features)
	if n == 0 {
		return nil, 0, false
	}
	p := len(features[0]) + 1 // leading 1 for the intercept

	// Build X'X and X'y over the augmented design matrix.
	xtx := make([][]float64, p)
	xty := make([]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	for i := 0; i < n; i++ {
		row := append([]float64{1}, features[i]...)
		for a := 0; a < p; a++ {
			xty[a] += row[a] * target[i]
			for b := 0; b < p; b++ {
				xtx[a][b] += row[a] * row[b]
			}
		}
	}

	sol, ok := solve(xtx, xty)
	if !ok {
		return nil, 0, false
	}
	return sol[1:], sol[0], true
}

// solve performs Gaussian elimination with partial pivoting.
func solve(m [][]float64, v []float64) ([]float64, bool) {
	n := len(v)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		v[col], v[pivot] = v[pivot], v[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c < n; c++ {
				m[r][c] -= f * m[col][c]
			}
			v[r] -= f * v[col]
		}
	}

	out := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := v[r]
		for c := r + 1; c < n; c++ {
			sum -= m[r][c] * out[c]
		}
		out[r] = sum / m[r][r]
	}
	return out, true
}

// popStddev is the population standard deviation.
func popStddev(xs []float64) float64 {
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
