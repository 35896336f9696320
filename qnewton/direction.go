// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qnewton

import (
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/manopt/manifold"
)

// fullDirection computes the descent direction η = -B(𝚐𝚛𝚊𝚍 f) with the
// dense full-memory operator. Pure function of the current state.
func fullDirection(spec *iterSpec, loc *iterLoc, ctx *iterCtx) manifold.TanVec {
	d := ctx.op.apply(spec.man, loc.x, loc.g)
	floats.Scale(-one, d)
	return d
}

// twoLoop computes the limited-memory quasi-Newton direction by the
// two-loop recursion over the correction window, pairs indexed oldest
// to newest:
//
//	q = 𝚐𝚛𝚊𝚍 f
//	for i = 𝚌𝚘𝚞𝚗𝚝-1 downto 0:  ρᵢ = ⟨sᵢ, q⟩/⟨sᵢ, yᵢ⟩;  q -= ρᵢ·yᵢ
//	r = γ·q                                  (initial scaling)
//	for i = 0 upto 𝚌𝚘𝚞𝚗𝚝-1:    ωᵢ = ⟨yᵢ, r⟩/⟨sᵢ, yᵢ⟩;  r += (ρᵢ + ωᵢ)·sᵢ
//	η = -r
//
// The scaling γ is ⟨s, y⟩/‖y‖² of the second-newest pair, or 1 while the
// window holds at most one pair.
func twoLoop(spec *iterSpec, loc *iterLoc, ctx *iterCtx) manifold.TanVec {

	man, x, g := spec.man, loc.x, loc.g
	h := ctx.hist

	// Plain gradient descent until the window holds a pair.
	if h.count == 0 {
		d := slices.Clone(g)
		floats.Scale(-one, d)
		return d
	}

	count := h.count
	if count > len(h.s) || count > len(h.y) {
		panic("bound check error")
	}

	rho := make([]float64, count)
	sy := make([]float64, count)

	// Backward pass, newest to oldest.
	q := slices.Clone(g)
	for i := count - 1; i >= 0; i-- {
		sy[i] = man.Inner(x, h.s[i], h.y[i])
		rho[i] = man.Inner(x, h.s[i], q) / sy[i]
		floats.AddScaled(q, -rho[i], h.y[i])
	}

	r := q
	if count > 1 {
		i := count - 2
		yy := man.Inner(x, h.y[i], h.y[i])
		floats.Scale(sy[i]/yy, r)
	}

	// Forward pass, oldest to newest.
	for i := 0; i < count; i++ {
		omega := man.Inner(x, h.y[i], r) / sy[i]
		floats.AddScaled(r, rho[i]+omega, h.s[i])
	}

	floats.Scale(-one, r)
	return r
}
