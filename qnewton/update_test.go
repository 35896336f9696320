// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qnewton

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/manopt/manifold"
)

// quadratic is ½‖x-a‖² on the flat chart: the gradient is x-a and the
// curvature pairs satisfy y = s exactly.
func quadratic(a []float64) Evaluation {
	return func(x manifold.Point, g manifold.TanVec) (f float64) {
		for i, v := range x {
			g[i] = v - a[i]
			f += g[i] * g[i]
		}
		return 0.5 * f
	}
}

// An unreachable cautious bound rejects every update: after N iterations
// the state is the N-fold transported initial state.
func TestCautiousRejectAll(t *testing.T) {

	a := []float64{1, -1}
	reject := func(float64) float64 { return math.MaxFloat64 }

	for _, mem := range []int{0, 3} {
		p := Problem{
			Man:           manifold.Euclidean{N: 2},
			Eval:          quadratic(a),
			Mem:           mem,
			Cautious:      true,
			CautiousBound: reject,
			Stop:          Termination{MaxIterations: 5},
			Step:          ConstantStep{Size: 0.1},
		}
		o, err := p.New(nil)
		if err != nil {
			t.Fatal(err)
		}

		w := o.Init()
		r := o.Fit([]float64{3, 3}, w)

		if r.Updates != 0 || r.Skips != r.NumIter || r.Skips == 0 {
			t.Fatalf("mem %d: %d updates %d skips over %d iterations", mem, r.Updates, r.Skips, r.NumIter)
		}
		if mem > 0 {
			if w.hist.count != 0 {
				t.Fatalf("mem %d: rejected updates filled the window", mem)
			}
		} else {
			// On the flat chart transport is the identity,
			// so the operator must still be the identity.
			v := manifold.TanVec{1, 2}
			if got := w.op.apply(o.man, w.x, v); !floats.EqualApprox(got, v, 1e-14) {
				t.Fatalf("mem %d: operator drifted to %v", mem, got)
			}
		}
	}
}

// A linear cost has constant gradient: every pair has zero curvature and
// must be skipped even with the cautious gate disabled.
func TestZeroCurvatureSkip(t *testing.T) {

	eval := func(x manifold.Point, g manifold.TanVec) (f float64) {
		copy(g, []float64{1, 2})
		return x[0] + 2*x[1]
	}

	p := Problem{
		Man:  manifold.Euclidean{N: 2},
		Eval: eval,
		Mem:  4,
		Stop: Termination{MaxIterations: 3},
		Step: ConstantStep{Size: 0.5},
	}
	o, err := p.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	w := o.Init()
	r := o.Fit([]float64{0, 0}, w)

	if r.Updates != 0 || r.Skips != r.NumIter || r.Skips == 0 {
		t.Fatalf("%d updates %d skips over %d iterations", r.Updates, r.Skips, r.NumIter)
	}
	if w.hist.count != 0 {
		t.Fatal("zero curvature pair entered the window")
	}
}

// The β factor compensates the length distortion of an inexact transport.
func TestBetaCompensation(t *testing.T) {

	man := manifold.Sphere{N: 3, ProjTransport: true}
	spec := &iterSpec{man: man, bound: func(t float64) float64 { return 1e-4 * t }}

	xOld := manifold.Point{1, 0, 0}
	step := man.Project(xOld, []float64{0, 0.4, 0.3})
	x := man.Retract(xOld, step)

	gOld := man.Project(xOld, []float64{0, -0.4, -0.3})
	g := man.Project(x, []float64{0, -0.2, -0.15})

	loc := &iterLoc{x: x, g: g}
	ctx := &iterCtx{hist: newHistory(2, nil)}

	updateState(spec, loc, ctx, xOld, step, gOld)

	if ctx.updates != 1 || ctx.hist.count != 1 {
		t.Fatalf("update not accepted: %d updates %d pairs", ctx.updates, ctx.hist.count)
	}

	s := ctx.hist.s[0]
	y := ctx.hist.y[0]
	if !floats.EqualApprox(s, man.Transport(step, xOld, x), 1e-14) {
		t.Fatal("stored step is not the transported step")
	}

	// Reassemble y from the same geometry: β‖T(ɑη)‖ must restore ‖ɑη‖.
	beta := man.Norm(xOld, step) / man.Norm(x, s)
	if beta <= 1 {
		t.Fatal("projection transport should shorten the step")
	}
	want := man.Transport(gOld, xOld, x)
	floats.Scale(-1, want)
	floats.AddScaled(want, beta, g)
	if !floats.EqualApprox(y, want, 1e-14) {
		t.Fatalf("gradient difference %v, want %v", y, want)
	}
}

// A degenerate zero step must not be incorporated.
func TestZeroStepSkip(t *testing.T) {

	man := manifold.Euclidean{N: 2}
	spec := &iterSpec{man: man, cautious: true, bound: func(t float64) float64 { return 1e-4 * t }}

	x := manifold.Point{1, 1}
	g := manifold.TanVec{0.5, 0.5}

	loc := &iterLoc{x: x, g: g}
	ctx := &iterCtx{hist: newHistory(2, nil)}

	updateState(spec, loc, ctx, x, manifold.TanVec{0, 0}, g)

	if ctx.skips != 1 || ctx.hist.count != 0 {
		t.Fatalf("zero step not skipped: %d skips %d pairs", ctx.skips, ctx.hist.count)
	}
}
