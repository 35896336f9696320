// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qnewton

import (
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/manopt/manifold"
)

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace
}

// start evaluates the objective at the initial iterate, guarding against
// panics raised by the evaluation callback.
func (d *iterDriver) start(x manifold.Point) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			status = HaltEvalPanic
		}
	}()
	d.optimizer.Start(x, d.workspace)
	return Running
}

// applyStep advances the workspace to the new iterate and runs the update
// engine, guarding against panics raised by the evaluation callback.
func (d *iterDriver) applyStep(step manifold.TanVec, x manifold.Point) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			status = HaltEvalPanic
		}
	}()
	d.optimizer.Apply(d.workspace, step, x)
	return Running
}

// newIteration handles the transition to a new iteration, checking for
// stopping conditions like exceeding iteration or evaluation limits.
func (d *iterDriver) newIteration(status Status) Status {
	o, w := d.optimizer, d.workspace
	w.iter++
	if w.iter > o.stop.MaxIterations {
		status = OverIterLimit
	} else if w.totalEval >= o.stop.MaxEvaluations {
		status = OverEvalLimit
	}
	return status
}

// checkConvergence checks if the convergence criteria have been met based
// on the gradient norm.
func (d *iterDriver) checkConvergence(status Status) Status {
	o, w := d.optimizer, d.workspace
	if w.gNorm <= o.stop.GradTolerance {
		status = ConvGradNorm
	}
	return status
}

// run is the main execution loop of the iteration process: computing the
// quasi-Newton direction, applying the step-size policy, retracting to the
// new iterate and updating the inverse-Hessian approximation.
func (d *iterDriver) run(x manifold.Point) (status Status) {

	o, w := d.optimizer, d.workspace
	spec := &o.iterSpec
	log := spec.logger

	d.printInit()

	if status = d.start(x); status == Running {
		status = d.checkConvergence(status)
		if log.enable(LogEval) {
			log.log("At iterate %5d    f= %12.5e    |grad|= %12.5e\n", w.iter, w.f, w.gNorm)
			log.out(" %4d %4d     -     %10.3e %10.3e\n", w.iter, w.totalEval, w.gNorm, w.f)
		}
	}

	for status == Running {

		if log.enable(LogTrace) {
			log.log("\n\nITERATION %5d\n", w.iter+1)
		}

		dir := o.Direction(w)

		loc := Location{X: w.x, F: w.f, G: w.g}
		alpha, evals := spec.step.Next(spec.man, spec.eval, loc, dir, w.iter)
		w.totalEval += evals

		step := make(manifold.TanVec, len(dir))
		floats.ScaleTo(step, alpha, dir)
		stepNorm := spec.man.Norm(w.x, step)
		if stepNorm <= spec.stop.StepTolerance {
			status = ConvStepSize
			break
		}

		if status = d.applyStep(step, spec.man.Retract(w.x, step)); status != Running {
			break
		}

		status = d.newIteration(status)
		status = d.checkConvergence(status)
		d.printIter(stepNorm)
	}

	d.printExit(status)
	return
}

// printInit logs the initialization details of the optimization process.
func (d *iterDriver) printInit() {

	spec := &d.optimizer.iterSpec
	log := spec.logger

	if log.enable(LogLast) {
		log.log("RUNNING THE RIEMANNIAN QUASI-NEWTON CODE\n")
		log.log("           * * *\n")
		if spec.mem > 0 {
			log.log("DIM = %d    MEM = %d\n", spec.man.Dim(), spec.mem)
		} else {
			log.log("DIM = %d    FULL MEMORY\n", spec.man.Dim())
		}
		if log.enable(LogEval) {
			log.out("RUNNING THE RIEMANNIAN QUASI-NEWTON CODE\n\n")
			log.out("\n   it   nf   step      |grad|      f\n")
		}
	}
}

// printIter logs the current iteration details, including the function
// value and gradient norm.
func (d *iterDriver) printIter(stepNorm float64) {

	w := d.workspace
	log := d.optimizer.logger

	if log.enable(LogTrace) {
		log.log("norm of step = %12.5e\n", stepNorm)
		log.log("At iterate %5d    f= %12.5e    |grad|= %12.5e\n", w.iter, w.f, w.gNorm)
	} else if log.enable(LogEval) {
		if w.iter%int(log.Level) == 0 {
			log.log("At iterate %5d    f= %12.5e    |grad|= %12.5e\n", w.iter, w.f, w.gNorm)
		}
	}

	if log.enable(LogEval) {
		log.out("%4d %5d %10.3e %10.3e %10.3e\n", w.iter, w.totalEval, stepNorm, w.gNorm, w.f)
	}
}

// printExit logs the final statistics and exit conditions of the
// optimization process.
func (d *iterDriver) printExit(status Status) {

	w := d.workspace
	spec := &d.optimizer.iterSpec

	log := spec.logger
	if !log.enable(LogLast) {
		return
	}

	log.log("\n           * * *\n")
	log.log("Tit   = total number of iterations\n")
	log.log("Tnf   = total number of function evaluations\n")
	log.log("Updt  = number of quasi-Newton updates accepted\n")
	log.log("Skip  = number of quasi-Newton updates skipped\n")
	log.log("Gnorm = norm of the final gradient\n")
	log.log("F     = final function value\n")
	log.log("\n           * * *\n")
	log.log("\n  Dim      Tit      Tnf   Updt   Skip    Gnorm         F\n")
	log.log("%5d %6d %7d %6d %6d %6.2e %9.5e\n",
		spec.man.Dim(), w.iter, w.totalEval, w.updates, w.skips, w.gNorm, w.f)

	var msg string
	switch status {
	case ConvGradNorm:
		msg = "CONVERGENCE: NORM_OF_GRADIENT_<=_GTOL"
	case ConvStepSize:
		msg = "CONVERGENCE: NORM_OF_STEP_<=_STOL"
	case HaltEvalPanic:
		msg = "STOP: CALLBACK REQUESTED HALT"
	case OverIterLimit:
		msg = "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case OverEvalLimit:
		msg = "STOP: TOTAL NO. of f AND g EVALUATIONS EXCEEDS LIMIT"
	default:
		msg = "UNKNOWN TASK"
	}
	log.log("\n%s\n", msg)
}
