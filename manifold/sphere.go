// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package manifold

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

const sphereEps = 1e-12

// Sphere is the unit sphere Sⁿ⁻¹ embedded in ℝⁿ with the induced metric.
//
// The retraction is the exponential map (geodesics are great circles).
// The default transport is exact parallel transport along the connecting
// geodesic, which preserves length. With ProjTransport set, vectors are
// instead projected onto the target tangent space; this first-order
// transport distorts length and exercises the β compensation of the
// quasi-Newton update engine.
type Sphere struct {
	N int
	// ProjTransport selects tangent-space projection instead of
	// exact parallel transport.
	ProjTransport bool
}

func (s Sphere) Dim() int { return s.N - 1 }

func (s Sphere) Inner(_ Point, u, v TanVec) float64 {
	return floats.Dot(u, v)
}

func (s Sphere) Norm(_ Point, v TanVec) float64 {
	return math.Sqrt(floats.Dot(v, v))
}

// Project removes the normal component: v - ⟨p,v⟩p.
func (s Sphere) Project(p Point, v []float64) TanVec {
	t := slices.Clone(v)
	floats.AddScaled(t, -floats.Dot(p, v), p)
	return t
}

// Retract is the exponential map
//
//	𝚎𝚡𝚙ₚ(v) = 𝚌𝚘𝚜(‖v‖)·p + 𝚜𝚒𝚗(‖v‖)·v/‖v‖
//
// renormalized to stay on the sphere under rounding.
func (s Sphere) Retract(p Point, v TanVec) Point {
	t := s.Norm(p, v)
	if t < sphereEps {
		return slices.Clone(p)
	}
	q := make(Point, s.N)
	floats.AddScaledTo(q, q, math.Cos(t), p)
	floats.AddScaled(q, math.Sin(t)/t, v)
	floats.Scale(1/math.Sqrt(floats.Dot(q, q)), q)
	return q
}

// Log is the inverse of the exponential map: the tangent vector at p
// pointing along the geodesic towards q, with length d(p, q).
// The antipode of p has no unique logarithm; the zero vector is returned.
func (s Sphere) Log(p, q Point) TanVec {
	c := floats.Dot(p, q)
	c = math.Max(-1, math.Min(1, c))
	v := s.Project(p, q)
	n := math.Sqrt(floats.Dot(v, v))
	if n < sphereEps {
		return make(TanVec, s.N)
	}
	floats.Scale(math.Acos(c)/n, v)
	return v
}

// Transport moves v from the tangent space at from into the tangent space
// at to. The exact variant is parallel transport along the geodesic:
//
//	𝙿(v) = v - ⟨d, v⟩/‖d‖² · (d + 𝚕𝚘𝚐_𝚝𝚘(𝚏𝚛𝚘𝚖))   with d = 𝚕𝚘𝚐_𝚏𝚛𝚘𝚖(𝚝𝚘)
func (s Sphere) Transport(v TanVec, from, to Point) TanVec {
	if s.ProjTransport {
		return s.Project(to, v)
	}
	d := s.Log(from, to)
	dd := floats.Dot(d, d)
	if dd < sphereEps {
		return s.Project(to, v)
	}
	back := s.Log(to, from)
	t := slices.Clone(v)
	c := floats.Dot(d, v) / dd
	floats.AddScaled(t, -c, d)
	floats.AddScaled(t, -c, back)
	return s.Project(to, t)
}

// Basis builds an orthonormal basis of the tangent space at p by
// Gram-Schmidt over the projected standard basis of ℝⁿ.
func (s Sphere) Basis(p Point) []TanVec {
	basis := make([]TanVec, 0, s.N-1)
	for i := 0; i < s.N && len(basis) < s.N-1; i++ {
		v := make(TanVec, s.N)
		v[i] = 1
		floats.AddScaled(v, -p[i], p)
		for _, b := range basis {
			floats.AddScaled(v, -floats.Dot(b, v), b)
		}
		if n := math.Sqrt(floats.Dot(v, v)); n > 1e-8 {
			floats.Scale(1/n, v)
			basis = append(basis, v)
		}
	}
	return basis
}

func (s Sphere) Zero(_ Point) TanVec {
	return make(TanVec, s.N)
}
