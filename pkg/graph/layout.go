package graph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// layoutDims is the number of coordinates in a Position.
const layoutDims = 3

// Layout projects every document of snap onto the first three principal
// components of the corpus, in snapshot order. Each component's sign is
// normalized so that its largest-magnitude loading is positive, which keeps
// the layout stable across rebuilds. Corpora with fewer than two documents,
// or with fewer than three dimensions of variance, get zeros in the missing
// coordinates.
func Layout(snap *vector.Snapshot) ([]Position, error) {
	n, d := snap.Len(), snap.Dimensions()
	positions := make([]Position, n)
	if n < 2 || d == 0 {
		return positions, nil
	}

	data := mat.NewDense(n, d, nil)
	for i, doc := range snap.Documents() {
		for j, v := range doc.Embedding {
			data.Set(i, j, float64(v))
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, fmt.Errorf("graph layout: principal component analysis did not converge")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	_, c := vecs.Dims()
	c = min(c, layoutDims)

	// Center the data before projecting.
	for j := range d {
		col := mat.Col(nil, j, data)
		mean := stat.Mean(col, nil)
		for i := range n {
			data.Set(i, j, data.At(i, j)-mean)
		}
	}

	for comp := range c {
		dir := mat.Col(nil, comp, &vecs)
		if largestIsNegative(dir) {
			for j := range dir {
				dir[j] = -dir[j]
			}
		}

		proj := make([]float64, n)
		for i := range n {
			proj[i] = mat.Dot(data.RowView(i), mat.NewVecDense(d, dir))
		}

		for i := range n {
			v := clean(proj[i])
			switch comp {
			case 0:
				positions[i].X = v
			case 1:
				positions[i].Y = v
			case 2:
				positions[i].Z = v
			}
		}
	}

	return positions, nil
}

func largestIsNegative(v []float64) bool {
	var best float64
	for _, x := range v {
		if math.Abs(x) > math.Abs(best) {
			best = x
		}
	}
	return best < 0
}

// clean maps values that cannot be encoded as JSON to zero.
func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
