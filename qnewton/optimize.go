// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qnewton implements Riemannian quasi-Newton optimization:
// the full-memory BFGS inverse-Hessian operator update and its
// limited-memory variant with optional cautious-update safeguarding.
package qnewton

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/curioloop/manopt/manifold"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only one line at the last iteration
	LogLast LogLevel = 0
	// LogEval print also f and |grad| every `level` iterations for any (0 < level < 99)
	LogEval LogLevel = 1
	// LogTrace print details of every iteration
	LogTrace LogLevel = 99
)

// Logger handles logging output for the optimizer.
// Note the writers must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
	Out   io.Writer // Writer for output data.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

func (l *Logger) out(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}

// Evaluation is a function type for evaluating the objective function and
// its Riemannian gradient. The gradient at x is stored into g, which is a
// tangent vector anchored at x.
type Evaluation func(x manifold.Point, g manifold.TanVec) (f float64)

// Termination specifies the stopping criteria for the optimization algorithm.
type Termination struct {
	// The iteration stop when the number of iteration exceeds limit.
	MaxIterations int
	// The iteration stop when the total number of function and gradient evaluation exceeds limit.
	MaxEvaluations int
	// The iteration will stop when the gradient satisfied:
	//   ‖ 𝚐𝚛𝚊𝚍 f(xₖ) ‖ ≤ 𝚐𝚝𝚘𝚕
	GradTolerance float64
	// The iteration will stop when the step satisfied:
	//   ‖ ɑₖηₖ ‖ ≤ 𝚜𝚝𝚘𝚕
	StepTolerance float64
}

// Corrections is an ordered set of curvature pairs (sₖ, yₖ) used to seed
// the limited-memory window. Entry i of both sequences must be anchored at
// the initial iterate; index 0 is the oldest pair.
type Corrections struct {
	Steps     []manifold.TanVec
	GradDiffs []manifold.TanVec
}

// Bound is the cautious-update acceptance threshold: a monotone function
// vanishing at 0, evaluated at the gradient norm before the step.
type Bound func(gradNorm float64) float64

// Problem specifies the problem for the Riemannian quasi-Newton optimizer.
type Problem struct {
	Man  manifold.Manifold // The manifold geometry
	Eval Evaluation        // Objective function and Riemannian gradient
	// The number of corrections kept by the limited-memory variant.
	// Zero or negative selects the full-memory operator, which stores
	// one column per tangent-space basis direction and is only viable
	// for manifolds of small dimension.
	Mem int
	// The Broyden class mixing factor in [0,1]:
	// 0 is the BFGS-type update, 1 the DFP-type, fractional a hybrid.
	// Only the BFGS branch is implemented.
	Broyden float64
	// Cautious enables the cautious-update acceptance test.
	Cautious bool
	// CautiousBound overrides the acceptance threshold (default 𝚝 ↦ 10⁻⁴𝚝).
	CautiousBound Bound
	// Init optionally seeds the limited-memory correction window.
	Init *Corrections
	Stop Termination // Stop condition
	Step Stepsize    // Optional step-size policy (default unit step)
}

// New creates a new quasi-Newton optimizer for given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
		logger.Level = LogNoop
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}
	if logger.Out == nil {
		logger.Out = os.Stderr
	}

	man, eval, stop := p.Man, p.Eval, p.Stop

	stop.MaxEvaluations = max(stop.MaxEvaluations, 0)
	if stop.MaxEvaluations == 0 {
		stop.MaxEvaluations = math.MaxInt
	}

	bound := p.CautiousBound
	if bound == nil {
		bound = func(t float64) float64 { return 1e-4 * t }
	}

	step := p.Step
	if step == nil {
		step = ConstantStep{Size: one}
	}

	mem := max(p.Mem, 0)

	switch {
	case man == nil:
		err = errors.New("manifold is required")
	case eval == nil:
		err = errors.New("evaluation target is required")
	case mem == 0 && man.Dim() <= 0:
		err = errors.New("full memory requires manifold dimension greater than 0")
	case stop.MaxIterations <= 0:
		err = errors.New("max iteration must greater than 1")
	case stop.GradTolerance < zero:
		err = errors.New("gradient tolerance must not less than 0")
	case stop.StepTolerance < zero:
		err = errors.New("step tolerance must not less than 0")
	case p.Broyden < zero || p.Broyden > one:
		err = errors.New("broyden factor must lie in [0,1]")
	case p.Broyden != zero:
		err = errors.New("broyden factor other than 0 (BFGS) is not implemented")
	}

	if err == nil && p.Init != nil {
		init := p.Init
		switch {
		case mem == 0:
			err = errors.New("initial corrections require limited memory")
		case len(init.Steps) != len(init.GradDiffs):
			err = errors.New("initial correction sequences must have equal length")
		case len(init.Steps) > mem:
			err = errors.New("initial corrections must not exceed memory size")
		}
	}

	if err != nil {
		return
	}

	optimizer = &Optimizer{
		iterSpec{
			man:      man,
			eval:     eval,
			mem:      mem,
			broyden:  p.Broyden,
			cautious: p.Cautious,
			bound:    bound,
			init:     p.Init,
			stop:     stop,
			step:     step,
			logger:   *logger,
		},
	}
	return
}

// Optimizer implemented using the Riemannian BFGS algorithm,
// full memory or limited memory depending on the problem.
type Optimizer struct {
	iterSpec
}

// Workspace contains the state and context of the optimization process:
// the current iterate, its gradient and the inverse-Hessian approximation.
// It is exclusively owned by a single solve; instances must not share
// fields by reference.
type Workspace struct {
	iterLoc
	iterCtx
}

// Result contains the final result of the optimization process.
type Result struct {
	OK      bool           // Whether the optimization was converged.
	F       float64        // Final function value.
	X       manifold.Point // Final iterate.
	G       manifold.TanVec
	GNorm   float64 // Final gradient norm.
	Summary         // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status  Status // Final task status after optimization.
	NumIter int    // Number of iterations performed.
	NumEval int    // Number of function and gradient evaluations performed.
	Updates int    // Number of accepted quasi-Newton updates.
	Skips   int    // Number of rejected (transport-only) updates.
}

// Init allocate the workspace for the optimizer.
// To avoid race conditions, separate workspaces need to be created for each
// goroutine. But multiple workspaces could share one optimizer.
func (o *Optimizer) Init() *Workspace {
	return new(Workspace)
}

// Fit runs the optimization process from the initial iterate x and
// workspace w until a stopping criterion is met.
func (o *Optimizer) Fit(x manifold.Point, w *Workspace) *Result {

	driver := iterDriver{
		optimizer: o,
		workspace: w,
	}
	status := driver.run(x)

	return &Result{
		OK: status.converged(),
		X:  w.x, F: w.f, G: w.g,
		GNorm: w.gNorm,
		Summary: Summary{
			Status:  status,
			NumIter: w.iter,
			NumEval: w.totalEval,
			Updates: w.updates,
			Skips:   w.skips,
		},
	}
}
