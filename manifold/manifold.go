// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package manifold defines the Riemannian geometry primitives consumed by
// the optimization packages, together with concrete manifolds embedded in ℝⁿ.
//
// Every tangent vector is anchored at a specific point: vectors anchored at
// different points live in different vector spaces and must be moved with an
// explicit Transport before they can be combined algebraically.
package manifold

// Point is a location on a manifold, in embedding coordinates.
// A Point is replaced rather than mutated when an iterate moves.
type Point = []float64

// TanVec is a tangent vector anchored at a specific Point.
type TanVec = []float64

// Manifold exposes the geometric operations of a Riemannian manifold
// embedded in ℝⁿ.
type Manifold interface {
	// Dim returns the intrinsic dimension of the manifold.
	Dim() int
	// Inner is the Riemannian metric ⟨u, v⟩ₚ at p.
	Inner(p Point, u, v TanVec) float64
	// Norm is the metric length ‖v‖ₚ of v at p.
	Norm(p Point, v TanVec) float64
	// Project maps an ambient ℝⁿ vector onto the tangent space at p.
	Project(p Point, v []float64) TanVec
	// Retract maps a tangent vector at p to a new point,
	// either by the exponential map or a first-order retraction.
	Retract(p Point, v TanVec) Point
	// Transport moves a tangent vector anchored at from
	// into the tangent space at to.
	Transport(v TanVec, from, to Point) TanVec
	// Basis returns an orthonormal basis of the tangent space at p.
	// The basis length equals Dim.
	Basis(p Point) []TanVec
	// Zero returns the zero tangent vector at p.
	Zero(p Point) TanVec
}
