package ols

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxCondition bounds the condition number of the design (of R in X = QR)
// accepted as full rank.
const maxCondition = 1e15

// Solution is the least-squares fit of a response on a design matrix.
type Solution struct {
	Beta      []float64
	Fitted    []float64
	Residuals []float64
	// TSS is the total sum of squares around the response mean.
	TSS float64
	// RSS is the residual sum of squares.
	RSS float64
	// XtXInv is (X'X)^-1 = R^-1 R^-T from the QR factorization of X.
	XtXInv *mat.SymDense
}

// ESS returns the explained sum of squares TSS - RSS, floored at zero.
func (s *Solution) ESS() float64 {
	return math.Max(s.TSS-s.RSS, 0)
}

// RSquared returns 1 - RSS/TSS clamped to [0, 1]. A constant response has R² = 0.
func (s *Solution) RSquared() float64 {
	if s.TSS == 0 {
		return 0
	}
	return clamp01(1 - s.RSS/s.TSS)
}

// Solve regresses y on the design matrix x by ordinary least squares.
// The design is expected to carry its own intercept column.
// Coefficients and (X'X)^-1 both come from the QR factor; X'X is never formed.
func Solve(x mat.Matrix, y []float64) (*Solution, error) {
	n, k := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("ols: response has %d values, design has %d rows", len(y), n)
	}
	if n < k {
		return nil, &InsufficientDataError{N: n, Need: k}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("ols: response value %d is not finite", i)
		}
	}

	var qr mat.QR
	qr.Factorize(x)
	if c := qr.Cond(); math.IsInf(c, 0) || math.IsNaN(c) || c > maxCondition {
		return nil, &SingularDesignError{Reason: fmt.Sprintf("design condition number %.3g", c)}
	}
	inv, err := xtxInverse(&qr, k)
	if err != nil {
		return nil, err
	}

	yv := mat.NewDense(n, 1, append([]float64(nil), y...))
	var b mat.Dense
	if err := qr.SolveTo(&b, false, yv); err != nil {
		return nil, &SingularDesignError{Reason: err.Error()}
	}
	beta := mat.Col(nil, 0, &b)

	var fit mat.VecDense
	fit.MulVec(x, mat.NewVecDense(k, beta))

	sol := &Solution{
		Beta:      beta,
		Fitted:    make([]float64, n),
		Residuals: make([]float64, n),
		XtXInv:    inv,
	}
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)
	for i := 0; i < n; i++ {
		f := fit.AtVec(i)
		e := y[i] - f
		sol.Fitted[i] = f
		sol.Residuals[i] = e
		sol.RSS += e * e
		d := y[i] - mean
		sol.TSS += d * d
	}
	return sol, nil
}

// xtxInverse returns R^-1 R^-T, which equals (X'X)^-1 without forming X'X.
func xtxInverse(qr *mat.QR, k int) (*mat.SymDense, error) {
	var full mat.Dense
	qr.RTo(&full)
	r := mat.NewTriDense(k, mat.Upper, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r.SetTri(i, j, full.At(i, j))
		}
	}
	var rinv mat.TriDense
	if err := rinv.InverseTri(r); err != nil {
		return nil, &SingularDesignError{Reason: err.Error()}
	}
	var inv mat.SymDense
	inv.SymOuterK(1, &rinv)
	return &inv, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
