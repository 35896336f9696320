// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qnewton

import (
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/manopt/manifold"
)

// updateState incorporates the curvature information of the last step into
// the inverse-Hessian approximation. On entry loc holds the new iterate
// and its gradient; xOld is the previous iterate, step the tangent step
// ɑη taken at xOld, and gOld the gradient at xOld computed before the step.
//
// The curvature pair is
//
//	sₖ = 𝚃(ɑη)                         transported step
//	yₖ = β·𝚐𝚛𝚊𝚍 f(xₖ₊₁) - 𝚃(𝚐𝚛𝚊𝚍 f(xₖ))
//	 β = ‖ɑη‖ / ‖𝚃(ɑη)‖
//
// where β compensates the length distortion of an inexact transport
// (exact parallel transport gives β = 1).
//
// A pair is rejected when ⟨sₖ, yₖ⟩ = 0, or in cautious mode when
// ⟨sₖ, yₖ⟩/‖sₖ‖ falls below 𝚋𝚘𝚞𝚗𝚍(‖𝚐𝚛𝚊𝚍 f(xₖ)‖). A rejected update only
// transports the stored state into the new tangent space, incorporating no
// curvature, which preserves positive definiteness of the approximation.
func updateState(spec *iterSpec, loc *iterLoc, ctx *iterCtx, xOld manifold.Point, step, gOld manifold.TanVec) {

	man, x := spec.man, loc.x

	s := man.Transport(step, xOld, x)

	beta := one
	if sn := man.Norm(x, s); sn > zero {
		beta = man.Norm(xOld, step) / sn
	}

	y := man.Transport(gOld, xOld, x)
	floats.Scale(-one, y)
	floats.AddScaled(y, beta, loc.g)

	sy := man.Inner(x, s, y)

	// A zero-curvature pair would divide the recursion by zero,
	// so it is skipped even when the cautious gate is disabled.
	accept := sy != zero
	if accept && spec.cautious {
		sn := man.Norm(x, s)
		accept = sn > zero && sy/sn >= spec.bound(man.Norm(xOld, gOld))
	}

	// The prior state is carried into the new tangent space
	// whether or not the pair is accepted.
	if ctx.op != nil {
		ctx.op.transport(man, xOld, x)
	} else {
		ctx.hist.transport(man, xOld, x)
	}

	if !accept {
		ctx.skips++
		if log := spec.logger; log.enable(LogEval) {
			log.log("Skipping quasi-Newton update. sy: %g\n", sy)
		}
		return
	}

	ctx.updates++
	if ctx.op != nil {
		ctx.op.update(man, x, s, y)
	} else {
		ctx.hist.push(s, y)
	}
}
