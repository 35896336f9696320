package numgrad

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/manopt/manifold"
	"github.com/curioloop/manopt/qnewton"
)

// rosenbrock and its analytic gradient on the flat chart.
func rosenbrock(x []float64) float64 {
	return 100*math.Pow(x[1]-x[0]*x[0], 2) + math.Pow(1-x[0], 2)
}

func rosenbrockGrad(x []float64) []float64 {
	return []float64{
		-400*x[0]*(x[1]-x[0]*x[0]) - 2*(1-x[0]),
		200 * (x[1] - x[0]*x[0]),
	}
}

func TestCheck(t *testing.T) {

	man := manifold.Euclidean{N: 2}
	cost := rosenbrock
	x := []float64{1, 1}

	tests := []struct {
		name string
		spec ApproxSpec
		grad []float64
		err  string
	}{
		{"no manifold", ApproxSpec{Cost: cost}, x, "manifold is required"},
		{"no cost", ApproxSpec{Man: man}, x, "cost function is required"},
		{"bad method", ApproxSpec{Man: man, Cost: cost, Method: 7}, x, "unknown method"},
		{"bad dims", ApproxSpec{Man: man, Cost: cost}, []float64{0}, "invalid grad dimensions"},
	}

	for _, tt := range tests {
		if err := tt.spec.Check(x, tt.grad); err == nil || err.Error() != tt.err {
			t.Fatalf("%s: got %v, want %q", tt.name, err, tt.err)
		}
	}
}

func TestEuclideanGrad(t *testing.T) {

	x := []float64{-1.2, 1}
	want := rosenbrockGrad(x)

	tests := []struct {
		name string
		spec ApproxSpec
		tol  float64
	}{
		{"forward", ApproxSpec{Man: manifold.Euclidean{N: 2}, Cost: rosenbrock, Method: Forward}, 1e-4},
		{"central", ApproxSpec{Man: manifold.Euclidean{N: 2}, Cost: rosenbrock, Method: Central}, 1e-7},
		{"relstep", ApproxSpec{Man: manifold.Euclidean{N: 2}, Cost: rosenbrock, Method: Central, RelStep: 1e-6}, 1e-5},
		{"absstep", ApproxSpec{Man: manifold.Euclidean{N: 2}, Cost: rosenbrock, Method: Central, AbsStep: 1e-6}, 1e-5},
	}

	for _, tt := range tests {
		grad := make([]float64, 2)
		if err := tt.spec.Grad(x, grad); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if !floats.EqualApprox(grad, want, tt.tol) {
			t.Fatalf("%s: gradient %v, want %v", tt.name, grad, want)
		}
		if x[0] != -1.2 || x[1] != 1 {
			t.Fatalf("%s: evaluation point was not restored: %v", tt.name, x)
		}
	}
}

// On the sphere, the projected finite-difference gradient of the ambient
// cost ½‖x-a‖² must match the exact Riemannian gradient 𝙿ₓ(x-a).
func TestSphereGrad(t *testing.T) {

	s := manifold.Sphere{N: 3}
	a := []float64{0, 0.6, 0.8}
	x := []float64{1, 0, 0}

	as := ApproxSpec{
		Man: s,
		Cost: func(p []float64) float64 {
			d := 0.0
			for i, v := range p {
				d += (v - a[i]) * (v - a[i])
			}
			return 0.5 * d
		},
		Method: Central,
	}

	grad := make([]float64, 3)
	if err := as.Grad(x, grad); err != nil {
		t.Fatal(err)
	}

	diff := make([]float64, 3)
	floats.SubTo(diff, x, a)
	want := s.Project(x, diff)

	if !floats.EqualApprox(grad, want, 1e-7) {
		t.Fatalf("projected gradient %v, want %v", grad, want)
	}
	if d := floats.Dot(grad, x); math.Abs(d) > 1e-12 {
		t.Fatalf("gradient not tangent: ⟨x,g⟩ = %e", d)
	}
}

// The wrapped evaluation plugs straight into the optimizer and reaches the
// minimizer of a quadratic without an analytic gradient.
func TestEvalWithOptimizer(t *testing.T) {

	a := []float64{3, -1}
	as := ApproxSpec{
		Man: manifold.Euclidean{N: 2},
		Cost: func(x []float64) float64 {
			d := 0.0
			for i, v := range x {
				d += (v - a[i]) * (v - a[i])
			}
			return 0.5 * d
		},
		Method: Central,
	}

	p := qnewton.Problem{
		Man:  manifold.Euclidean{N: 2},
		Eval: as.Eval(),
		Mem:  3,
		Stop: qnewton.Termination{MaxIterations: 100, GradTolerance: 1e-6},
		Step: qnewton.ConstantStep{Size: 0.5},
	}
	o, err := p.New(nil)
	if err != nil {
		t.Fatal(err)
	}

	r := o.Fit([]float64{0, 0}, o.Init())
	if !r.OK {
		t.Fatalf("not converged: %v", r.Status)
	}
	if !floats.EqualApprox(r.X, a, 1e-5) {
		t.Fatalf("minimizer %v, want %v", r.X, a)
	}
}
