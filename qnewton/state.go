// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qnewton

import (
	"slices"

	"github.com/curioloop/manopt/manifold"
)

const (
	zero = 0.0
	one  = 1.0
)

// Status reports why an optimization stopped.
type Status int

const (
	// Running the iteration has not stopped yet.
	Running Status = iota
	// ConvGradNorm the gradient norm reached Termination.GradTolerance.
	ConvGradNorm
	// ConvStepSize the step length reached Termination.StepTolerance.
	ConvStepSize
	// OverIterLimit the number of iterations reached Termination.MaxIterations.
	OverIterLimit
	// OverEvalLimit the number of evaluations reached Termination.MaxEvaluations.
	OverEvalLimit
	// HaltEvalPanic the evaluation callback panicked.
	HaltEvalPanic
)

func (s Status) converged() bool {
	return s == ConvGradNorm || s == ConvStepSize
}

// iterSpec is the immutable configuration shared by all workspaces
// created from one optimizer.
type iterSpec struct {
	man      manifold.Manifold
	eval     Evaluation
	mem      int
	broyden  float64
	cautious bool
	bound    Bound
	init     *Corrections
	stop     Termination
	step     Stepsize
	logger   Logger
}

// iterLoc is the current evaluation point of an iteration.
type iterLoc struct {
	x manifold.Point
	g manifold.TanVec
	f float64
}

// iterCtx is the mutable per-solve context: the inverse-Hessian
// approximation (exactly one of op or hist is set) and the counters.
type iterCtx struct {
	op   *operator // full-memory operator, one column per basis direction
	hist *history  // limited-memory correction window

	gNorm float64

	iter      int
	totalEval int
	updates   int
	skips     int
}

// Start initializes the workspace at the initial iterate x:
// the objective is evaluated once and the inverse-Hessian approximation is
// reset to the identity (full memory) or to the seeded correction window
// (limited memory).
func (o *Optimizer) Start(x manifold.Point, w *Workspace) {

	w.iterCtx = iterCtx{}
	w.x = slices.Clone(x)
	w.g = o.man.Zero(w.x)

	if o.mem > 0 {
		w.hist = newHistory(o.mem, o.init)
	} else {
		w.op = newOperator(o.man, w.x)
	}

	w.f = o.eval(w.x, w.g)
	w.totalEval++
	w.gNorm = o.man.Norm(w.x, w.g)
}

// Direction computes the quasi-Newton descent direction at the current
// iterate. The workspace is not mutated.
func (o *Optimizer) Direction(w *Workspace) manifold.TanVec {
	if w.hist != nil {
		return twoLoop(&o.iterSpec, &w.iterLoc, &w.iterCtx)
	}
	return fullDirection(&o.iterSpec, &w.iterLoc, &w.iterCtx)
}

// Apply advances the workspace to the new iterate x reached by taking the
// tangent step ɑη at the current iterate: the objective is re-evaluated,
// stored state is transported into the new tangent space, and the
// curvature pair is incorporated unless rejected by the safeguards.
func (o *Optimizer) Apply(w *Workspace, step manifold.TanVec, x manifold.Point) {

	xOld, gOld := w.x, w.g

	w.x = slices.Clone(x)
	w.g = o.man.Zero(w.x)
	w.f = o.eval(w.x, w.g)
	w.totalEval++
	w.gNorm = o.man.Norm(w.x, w.g)

	updateState(&o.iterSpec, &w.iterLoc, &w.iterCtx, xOld, step, gOld)
}

// Result returns the current iterate.
func (w *Workspace) Result() manifold.Point {
	return w.x
}
