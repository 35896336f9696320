// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package manifold

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Euclidean is the flat chart ℝⁿ with the standard metric.
// Its transport is the identity, so it is exact and length preserving.
type Euclidean struct {
	N int
}

func (e Euclidean) Dim() int { return e.N }

func (e Euclidean) Inner(_ Point, u, v TanVec) float64 {
	return floats.Dot(u, v)
}

func (e Euclidean) Norm(_ Point, v TanVec) float64 {
	return math.Sqrt(floats.Dot(v, v))
}

func (e Euclidean) Project(_ Point, v []float64) TanVec {
	return slices.Clone(v)
}

func (e Euclidean) Retract(p Point, v TanVec) Point {
	q := make(Point, e.N)
	floats.AddTo(q, p, v)
	return q
}

func (e Euclidean) Transport(v TanVec, _, _ Point) TanVec {
	return slices.Clone(v)
}

func (e Euclidean) Basis(_ Point) []TanVec {
	basis := make([]TanVec, e.N)
	for i := range basis {
		basis[i] = make(TanVec, e.N)
		basis[i][i] = 1
	}
	return basis
}

func (e Euclidean) Zero(_ Point) TanVec {
	return make(TanVec, e.N)
}
