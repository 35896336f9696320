// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qnewton

import (
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/manopt/manifold"
)

// operator is the full-memory inverse-Hessian approximation B,
// represented by its action on an orthonormal basis of the tangent space
// at the current iterate:
//
//	B(v) = Σᵢ ⟨eᵢ, v⟩ · 𝚌𝚘𝚕ᵢ
//
// Both sequences have length equal to the manifold dimension at all times,
// and every vector is anchored at the current iterate.
type operator struct {
	basis []manifold.TanVec
	cols  []manifold.TanVec
}

// newOperator builds the identity operator at x: 𝚌𝚘𝚕ᵢ = eᵢ.
func newOperator(man manifold.Manifold, x manifold.Point) *operator {
	basis := man.Basis(x)
	cols := make([]manifold.TanVec, len(basis))
	for i, e := range basis {
		cols[i] = slices.Clone(e)
	}
	return &operator{basis: basis, cols: cols}
}

// apply computes the matrix-vector product B(v) at x.
// This costs O(n²) inner products for an n-dimensional manifold.
func (b *operator) apply(man manifold.Manifold, x manifold.Point, v manifold.TanVec) manifold.TanVec {
	if len(b.cols) != len(b.basis) {
		panic("operator columns not match basis")
	}
	out := man.Zero(x)
	for i, e := range b.basis {
		floats.AddScaled(out, man.Inner(x, e, v), b.cols[i])
	}
	return out
}

// transport moves every stored column and basis vector into the tangent
// space at to. An exact transport preserves inner products, so the moved
// basis stays orthonormal; an approximate transport keeps it orthonormal
// only to first order.
func (b *operator) transport(man manifold.Manifold, from, to manifold.Point) {
	for i := range b.cols {
		b.cols[i] = man.Transport(b.cols[i], from, to)
		b.basis[i] = man.Transport(b.basis[i], from, to)
	}
}

// update applies the inverse-BFGS formula per basis vector,
// with s, y and the operator anchored at x:
//
//	Bₖ₊₁eᵢ = Bₖeᵢ - (⟨eᵢ,s⟩/σ)·Bₖy - (⟨Bₖy,eᵢ⟩/σ)·s
//	       + (⟨y,Bₖy⟩⟨s,eᵢ⟩/σ²)·s + (⟨s,eᵢ⟩/σ)·s       σ = ⟨s,y⟩
//
// The caller must reject σ = 0 before incorporating the pair.
func (b *operator) update(man manifold.Manifold, x manifold.Point, s, y manifold.TanVec) {

	sy := man.Inner(x, s, y)
	by := b.apply(man, x, y)
	yby := man.Inner(x, y, by)

	cols := make([]manifold.TanVec, len(b.basis))
	for i, e := range b.basis {
		se := man.Inner(x, s, e)
		bye := man.Inner(x, by, e)

		// Bₖeᵢ = 𝚌𝚘𝚕ᵢ since the basis is orthonormal.
		c := slices.Clone(b.cols[i])
		floats.AddScaled(c, -se/sy, by)
		floats.AddScaled(c, (yby*se/sy-bye+se)/sy, s)
		cols[i] = c
	}
	b.cols = cols
}
