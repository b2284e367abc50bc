// Package ols fits the per-group linear model: ordinary least squares with an
// HC0 heteroscedasticity-consistent covariance.
package ols

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minObservations is two parameters plus one residual degree of freedom.
const minObservations = 3

// numParams is the intercept and the slope.
const numParams = 2

// Point is one (x, y) observation.
type Point struct {
	X float64
	Y float64
}

// Model is a fitted bivariate linear regression y = b0 + b1*x with an HC0
// (White) heteroscedasticity-consistent coefficient covariance.
//
// A Model is immutable: every accessor returns a copy.
type Model struct {
	points    []Point
	design    *mat.Dense
	beta      []float64
	fitted    []float64
	residuals []float64
	cov       *mat.SymDense
	rsq       float64
	adjRsq    float64
}

// DesignMatrix builds the n×2 design matrix [1, x].
func DesignMatrix(xs []float64) *mat.Dense {
	x := mat.NewDense(len(xs), numParams, nil)
	for i, v := range xs {
		x.Set(i, 0, 1)
		x.Set(i, 1, v)
	}
	return x
}

// Fit estimates the model by ordinary least squares and computes the HC0
// covariance (X'X)^-1 X' diag(e²) X (X'X)^-1.
//
// Fit returns *InsufficientDataError when fewer than three points are given
// and *SingularDesignError when x is constant.
func Fit(points []Point) (*Model, error) {
	n := len(points)
	if n < minObservations {
		return nil, &InsufficientDataError{N: n, Need: minObservations}
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		if !finite(p.X) || !finite(p.Y) {
			return nil, fmt.Errorf("ols: point %d is not finite (x=%v, y=%v)", i, p.X, p.Y)
		}
		xs[i] = p.X
		ys[i] = p.Y
	}
	if constant(xs) {
		return nil, &SingularDesignError{Reason: "predictor has zero variance"}
	}

	x := DesignMatrix(xs)
	sol, err := Solve(x, ys)
	if err != nil {
		return nil, err
	}

	m := &Model{
		points:    append([]Point(nil), points...),
		design:    x,
		beta:      sol.Beta,
		fitted:    sol.Fitted,
		residuals: sol.Residuals,
		cov:       hc0(x, sol.XtXInv, sol.Residuals),
		rsq:       sol.RSquared(),
	}
	m.adjRsq = 1 - (1-m.rsq)*float64(n-1)/float64(n-numParams)
	return m, nil
}

// hc0 computes bread·meat·bread as (B)(B)' with B = (X'X)^-1 (diag(e) X)',
// which keeps the result exactly symmetric.
func hc0(x *mat.Dense, xtxInv *mat.SymDense, resid []float64) *mat.SymDense {
	n, k := x.Dims()
	scaled := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			scaled.Set(i, j, x.At(i, j)*resid[i])
		}
	}
	var b mat.Dense
	b.Mul(xtxInv, scaled.T())
	var cov mat.SymDense
	cov.SymOuterK(1, &b)
	return &cov
}

// N returns the number of observations.
func (m *Model) N() int { return len(m.points) }

// Intercept returns b0.
func (m *Model) Intercept() float64 { return m.beta[0] }

// Slope returns b1.
func (m *Model) Slope() float64 { return m.beta[1] }

// Params returns [b0, b1].
func (m *Model) Params() []float64 { return append([]float64(nil), m.beta...) }

// Points returns the observations the model was fitted on.
func (m *Model) Points() []Point { return append([]Point(nil), m.points...) }

// Fitted returns the fitted values in input order.
func (m *Model) Fitted() []float64 { return append([]float64(nil), m.fitted...) }

// Residuals returns y - ŷ in input order.
func (m *Model) Residuals() []float64 { return append([]float64(nil), m.residuals...) }

// Design returns a copy of the design matrix used for the fit.
func (m *Model) Design() *mat.Dense { return mat.DenseCopyOf(m.design) }

// Cov returns a copy of the HC0 covariance matrix.
func (m *Model) Cov() *mat.SymDense {
	out := mat.NewSymDense(m.cov.SymmetricDim(), nil)
	out.CopySym(m.cov)
	return out
}

// RSquared returns the coefficient of determination.
func (m *Model) RSquared() float64 { return m.rsq }

// AdjRSquared returns R² adjusted for the residual degrees of freedom.
func (m *Model) AdjRSquared() float64 { return m.adjRsq }

// DFResid returns n - 2.
func (m *Model) DFResid() int { return len(m.points) - numParams }

// StdErrors returns the robust standard errors sqrt(diag(Cov)).
func (m *Model) StdErrors() []float64 {
	k := m.cov.SymmetricDim()
	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = math.Sqrt(math.Max(m.cov.At(i, i), 0))
	}
	return out
}

// ZStats returns coefficient / robust standard error.
func (m *Model) ZStats() []float64 {
	se := m.StdErrors()
	out := make([]float64, len(se))
	for i, s := range se {
		switch {
		case s > 0:
			out[i] = m.beta[i] / s
		case m.beta[i] == 0:
			out[i] = math.NaN()
		default:
			out[i] = math.Copysign(math.Inf(1), m.beta[i])
		}
	}
	return out
}

// PValues returns two-sided p-values of the z statistics under the standard
// normal distribution, as is usual for robust covariance estimators.
func (m *Model) PValues() []float64 {
	z := m.ZStats()
	out := make([]float64, len(z))
	for i, v := range z {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = clamp01(2 * distuv.UnitNormal.Survival(math.Abs(v)))
	}
	return out
}

// Predict returns b0 + b1*x.
func (m *Model) Predict(x float64) float64 { return m.beta[0] + m.beta[1]*x }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}
