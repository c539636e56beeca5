// Package vector provides the in-memory vector store and its similarity metrics.
package vector

import (
	"fmt"
	"math"
	"strings"
)

// Metric scores two vectors of equal length. Larger means more similar.
type Metric func(a, b []float32) (float64, error)

// Metric names accepted by MetricByName.
const (
	MetricCosine    = "cosine"
	MetricDot       = "dot"
	MetricEuclidean = "euclidean"
)

// Cosine returns dot(a, b) / (|a| * |b|). A zero-norm operand yields a
// *DegenerateVectorError rather than a NaN score.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionError{Got: len(b), Expected: len(a)}
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	switch {
	case na == 0 && nb == 0:
		return 0, &DegenerateVectorError{Operand: "both"}
	case na == 0:
		return 0, &DegenerateVectorError{Operand: "a"}
	case nb == 0:
		return 0, &DegenerateVectorError{Operand: "b"}
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// DotProduct returns the inner product of a and b (equals cosine for unit vectors).
func DotProduct(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionError{Got: len(b), Expected: len(a)}
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// NegativeEuclidean returns -|a - b| so that closer vectors score higher.
func NegativeEuclidean(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionError{Got: len(b), Expected: len(a)}
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return -math.Sqrt(sum), nil
}

// MetricByName resolves a metric name from config or a request. Empty means cosine.
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MetricCosine:
		return Cosine, nil
	case MetricDot, "dot_product", "inner_product":
		return DotProduct, nil
	case MetricEuclidean, "l2":
		return NegativeEuclidean, nil
	default:
		return nil, fmt.Errorf("unknown metric: %s (supported: cosine, dot, euclidean)", name)
	}
}
