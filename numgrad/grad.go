// Package numgrad estimates Riemannian gradients by finite differences in
// the embedding coordinates, projected onto the tangent space.
package numgrad

import (
	"errors"
	"math"

	"github.com/curioloop/manopt/manifold"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use the second order accuracy central difference.
	Central
)

// ApproxSpec estimates the Riemannian gradient of a scalar cost:
// the cost is perturbed along each embedding coordinate and the resulting
// ambient gradient estimate is projected onto the tangent space.
//
// The cost must be defined in an ambient neighborhood of the manifold,
// not only on it, since the perturbed points leave the manifold.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
type ApproxSpec struct {
	Man manifold.Manifold
	// Cost of which to estimate the gradient.
	// The argument x passed to this function is an embedding-coordinate vector.
	Cost func(x []float64) float64
	// Finite difference method to use.
	Method Method
	// Relative step size used to compute absolute step size as
	// h = RelStep * sign(x0) * abs(x0). Selected automatically from the
	// machine epsilon when neither RelStep nor AbsStep is provided.
	RelStep float64
	// Absolute step size to use.
	// The RelStep is used when AbsStep is not provided.
	AbsStep float64
	approxCtx
}

type approxCtx struct {
	absStep []float64
	ambient []float64
}

// Check the parameters and initialize approxCtx.
func (as *ApproxSpec) Check(x0, grad []float64) (err error) {

	switch {
	case as.Man == nil:
		err = errors.New("manifold is required")
	case as.Cost == nil:
		err = errors.New("cost function is required")
	case as.Method != Forward && as.Method != Central:
		err = errors.New("unknown method")
	case len(x0) != len(grad):
		err = errors.New("invalid grad dimensions")
	}
	if err != nil {
		return
	}

	n := len(x0)
	if len(as.absStep) != n {
		as.absStep = make([]float64, n)
		as.ambient = make([]float64, n)
	}
	return
}

// Grad calculates the projected gradient approximation at x0 by finite
// differences, storing it into grad.
func (as *ApproxSpec) Grad(x0, grad []float64) error {

	if err := as.Check(x0, grad); err != nil {
		return err
	}

	as.absoluteStep(x0)

	if as.Method == Central {
		as.approxCentral(x0)
	} else {
		as.approxForward(x0)
	}

	copy(grad, as.Man.Project(x0, as.ambient))
	return nil
}

// Eval wraps the approximation as an objective evaluation suitable for the
// qnewton optimizer. Estimation failures surface as panics, which the
// solver driver converts to a halt.
func (as *ApproxSpec) Eval() func(x, g []float64) float64 {
	return func(x, g []float64) float64 {
		if err := as.Grad(x, g); err != nil {
			panic(err)
		}
		return as.Cost(x)
	}
}

func (as *ApproxSpec) absoluteStep(x0 []float64) {
	h := as.absStep
	if len(h) != len(x0) {
		panic("bound check error")
	}

	var eps float64
	switch as.Method {
	case Forward:
		eps = sqrtEps
	case Central:
		eps = cubeEps
	default:
		panic("unknown method")
	}

	abs := as.AbsStep
	rel := as.RelStep
	if abs == 0 && rel == 0 {
		for i, v := range x0 {
			h[i] = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		}
	} else {
		for i, v := range x0 {
			s := abs
			if s == 0 {
				s = math.Copysign(rel, v) * math.Abs(v)
			}
			d := (v + s) - v
			if d == 0 {
				s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
			}
			h[i] = s
		}
	}
}

func (as *ApproxSpec) approxForward(x0 []float64) {

	df, h := as.ambient, as.absStep
	if len(h) != len(x0) || len(df) != len(x0) {
		panic("bound check error")
	}

	fun := as.Cost
	f0 := fun(x0)
	for i, s := range h {
		t := x0[i]
		x0[i] = t + s
		df[i] = (fun(x0) - f0) / s
		x0[i] = t
	}
}

func (as *ApproxSpec) approxCentral(x0 []float64) {

	df, h := as.ambient, as.absStep
	if len(h) != len(x0) || len(df) != len(x0) {
		panic("bound check error")
	}

	fun := as.Cost
	for i, s := range h {
		t := x0[i]
		x0[i] = t - s
		f1 := fun(x0)
		x0[i] = t + s
		f2 := fun(x0)
		df[i] = (f2 - f1) / (2 * s)
		x0[i] = t
	}
}
