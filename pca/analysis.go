package pca

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// degenerateEigenValue is the largest eigen value below which a scatter counts as a single
// point.
const degenerateEigenValue = 1e-12

// EigenValueQuotient returns the smallest eigen value of the covariance of points divided by
// the largest one. It is close to 0 for planar or linear scatters and approaches 1 for
// isotropic ones. The second return is false for fewer than three points or when all points
// coincide.
func EigenValueQuotient(points []r3.Vector) (float64, bool) {
	shape, ok := ShapeOf(points)
	return shape.Quotient, ok
}

// Shape holds the eigen value ratios of a scatter of points.
type Shape struct {
	// Quotient is the smallest eigen value divided by the largest one.
	Quotient float64
	// Spread is the middle eigen value divided by the largest one. It is close to 0 when
	// the points lie along a line and tells lines apart from planes, which both have a
	// quotient close to 0.
	Spread float64
}

// ShapeOf returns the eigen value ratios of the covariance of points. The second return is
// false for fewer than three points or when all points coincide.
func ShapeOf(points []r3.Vector) (Shape, bool) {
	values, ok := eigenValues(points)
	if !ok {
		return Shape{}, false
	}
	// ascending order
	largest := values[len(values)-1]
	if largest < degenerateEigenValue {
		return Shape{}, false
	}
	return Shape{
		Quotient: math.Max(values[0], 0) / largest,
		Spread:   math.Max(values[1], 0) / largest,
	}, true
}

func eigenValues(points []r3.Vector) ([]float64, bool) {
	if len(points) < 3 {
		return nil, false
	}
	data := mat.NewDense(len(points), 3, nil)
	for i, p := range points {
		data.Set(i, 0, p.X)
		data.Set(i, 1, p.Y)
		data.Set(i, 2, p.Z)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	var eigen mat.EigenSym
	if ok := eigen.Factorize(&cov, false); !ok {
		return nil, false
	}
	return eigen.Values(nil), true
}

// Options controls Analyze.
type Options struct {
	// KeepInputData keeps the raw points of every leaf after the analysis.
	KeepInputData bool
}

// AnalysisStats summarizes an analysis pass.
type AnalysisStats struct {
	Leaves     int
	Degenerate int
}

// Analyze computes the eigen value ratios of every leaf. Unless opts.KeepInputData is set the
// raw points are released afterwards.
func Analyze(tree *Tree, opts Options) AnalysisStats {
	var stats AnalysisStats
	tree.IterateLeaves(func(n *Node) bool {
		stats.Leaves++
		v := n.Payload()
		if shape, ok := ShapeOf(v.Points()); ok {
			v.SetShape(shape)
		} else {
			v.SetDegenerate()
			stats.Degenerate++
		}
		if !opts.KeepInputData {
			v.ClearInputData()
		}
		return true
	})
	return stats
}
