// Package distance defines the metrics used to compare embeddings.
//
// Every metric is a distance: smaller values mean more similar documents and
// results are always ranked ascending. All arithmetic is done in float64.
package distance

import (
	"fmt"
	"math"
	"strings"

	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// MaxCosineDistance is the largest cosine distance, returned for opposite
// vectors and, as a sentinel, whenever either input has zero norm.
const MaxCosineDistance = 2.0

// Metric selects the distance function used system-wide.
type Metric int

const (
	// Cosine is 1 - cosine similarity, in [0, 2].
	Cosine Metric = iota

	// Euclidean is the L2 distance.
	Euclidean
)

func (m Metric) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Euclidean:
		return "euclidean"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMetric parses a configured metric name. An empty name selects Cosine.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine":
		return Cosine, nil
	case "euclidean", "l2":
		return Euclidean, nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q (available: cosine, euclidean)", vector.ErrInvalidArgument, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	switch m {
	case Cosine, Euclidean:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("%w: unknown metric %d", vector.ErrInvalidArgument, int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler. Unlike ParseMetric it
// does not accept an empty name.
func (m *Metric) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty metric", vector.ErrInvalidArgument)
	}
	parsed, err := ParseMetric(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Distance compares a and b under m.
func (m Metric) Distance(a, b vector.Embedding) (float64, error) {
	switch m {
	case Cosine:
		return CosineDistance(a, b)
	case Euclidean:
		return EuclideanDistance(a, b)
	default:
		return 0, fmt.Errorf("%w: unknown metric %d", vector.ErrInvalidArgument, int(m))
	}
}

// CosineDistance returns 1 - cos(a, b). The similarity is clamped to [-1, 1]
// and zero-norm inputs yield MaxCosineDistance.
func CosineDistance(a, b vector.Embedding) (float64, error) {
	if err := vector.CheckDimensions(len(a), len(b)); err != nil {
		return 0, err
	}
	return CosineWithNorms(a, b, Norm(a), Norm(b)), nil
}

// CosineWithNorms is CosineDistance for callers that have already computed
// both L2 norms. a and b must have the same length.
func CosineWithNorms(a, b vector.Embedding, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return MaxCosineDistance
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	similarity := dot / (normA * normB)
	// Rounding can push identical vectors slightly past 1.
	similarity = max(-1, min(1, similarity))
	return 1 - similarity
}

// EuclideanDistance returns the L2 distance between a and b.
func EuclideanDistance(a, b vector.Embedding) (float64, error) {
	if err := vector.CheckDimensions(len(a), len(b)); err != nil {
		return 0, err
	}
	return euclidean(a, b), nil
}

func euclidean(a, b vector.Embedding) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Norm returns the L2 norm of v.
func Norm(v vector.Embedding) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}
