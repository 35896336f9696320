// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qnewton

import (
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/manopt/manifold"
)

const (
	searchAlpha    = 1.0e-3
	searchShrink   = 0.5
	searchBackExit = 20
)

// Location is the evaluation point handed to a step-size policy.
type Location struct {
	X manifold.Point
	F float64
	G manifold.TanVec
}

// Stepsize determines the scalar step ɑₖ applied along a search direction.
type Stepsize interface {
	// Next returns the step length for direction dir at loc, together with
	// the number of extra objective evaluations spent choosing it.
	Next(man manifold.Manifold, eval Evaluation, loc Location, dir manifold.TanVec, iter int) (alpha float64, evals int)
}

// ConstantStep uses the same step length at every iteration.
type ConstantStep struct {
	Size float64
}

func (c ConstantStep) Next(manifold.Manifold, Evaluation, Location, manifold.TanVec, int) (float64, int) {
	return c.Size, 0
}

// Backtracking shrinks the step until the sufficient decrease condition
//
//	f(𝚛𝚎𝚝𝚛(x, λd)) ≤ f(x) + ɑλ⟨𝚐𝚛𝚊𝚍 f, d⟩   (ɑ = 10⁻³)
//
// holds. A zero step is returned when d is not a descent direction.
type Backtracking struct {
	// Initial is the first step tried (default 1).
	Initial float64
	// Shrink is the contraction factor in (0,1) (default 0.5).
	Shrink float64
	// Alpha is a non-negative tolerance for the sufficient decrease condition.
	Alpha float64
	// MaxBacks limits the number of contractions (default 20).
	MaxBacks int
}

func (b Backtracking) Next(man manifold.Manifold, eval Evaluation, loc Location, dir manifold.TanVec, _ int) (float64, int) {

	initial, shrink, alpha, backs := b.Initial, b.Shrink, b.Alpha, b.MaxBacks
	if initial <= zero {
		initial = one
	}
	if shrink <= zero || shrink >= one {
		shrink = searchShrink
	}
	if alpha <= zero {
		alpha = searchAlpha
	}
	if backs <= 0 {
		backs = searchBackExit
	}

	gd := man.Inner(loc.X, loc.G, dir)
	if gd >= zero {
		// Line search is impossible when the directional derivative ≥ 0.
		return zero, 0
	}

	stp := initial
	t := make(manifold.TanVec, len(dir))
	g := man.Zero(loc.X)

	evals := 0
	for i := 0; i < backs; i++ {
		floats.ScaleTo(t, stp, dir)
		f := eval(man.Retract(loc.X, t), g)
		evals++
		if f <= loc.F+alpha*stp*gd {
			break
		}
		stp *= shrink
	}
	return stp, evals
}
