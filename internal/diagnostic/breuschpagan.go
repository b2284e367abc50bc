// Package diagnostic runs residual diagnostics on fitted regressions.
package diagnostic

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/healthgap-cli/internal/ols"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DegenerateAuxiliaryRegressionError indicates the regression of squared
// residuals on the design could not be estimated.
type DegenerateAuxiliaryRegressionError struct {
	Err error
}

func (e *DegenerateAuxiliaryRegressionError) Error() string {
	if e == nil || e.Err == nil {
		return "degenerate auxiliary regression"
	}
	return fmt.Sprintf("degenerate auxiliary regression: %v", e.Err)
}

func (e *DegenerateAuxiliaryRegressionError) Unwrap() error { return e.Err }

// Result holds the Breusch-Pagan statistics.
type Result struct {
	LM       float64 `json:"lm"`
	LMPValue float64 `json:"lm_pvalue"`
	F        float64 `json:"f"`
	FPValue  float64 `json:"f_pvalue"`
	// DF1 is k-1, the chi-square and F numerator degrees of freedom.
	DF1 int `json:"df1"`
	// DF2 is n-k, the F denominator degrees of freedom.
	DF2 int `json:"df2"`
	N   int `json:"n"`
	// Robust reports whether the studentized (Koenker) LM was used.
	Robust bool `json:"robust"`
}

type options struct {
	robust bool
}

// Option configures BreuschPagan.
type Option func(*options)

// WithRobust selects the studentized LM = n·R² (true, the default) or the
// original Breusch-Pagan LM = ESS/2 on mean-scaled squared residuals (false).
func WithRobust(robust bool) Option {
	return func(o *options) { o.robust = robust }
}

var errZeroVariance = errors.New("squared residuals have zero variance")

// BreuschPagan tests whether the squared residuals are explained by the
// columns of design, which must be the matrix used in the original fit and
// include an intercept column.
func BreuschPagan(residuals []float64, design mat.Matrix, opts ...Option) (*Result, error) {
	o := options{robust: true}
	for _, fn := range opts {
		fn(&o)
	}
	n, k := design.Dims()
	if len(residuals) != n {
		return nil, fmt.Errorf("breusch-pagan: %d residuals for a design with %d rows", len(residuals), n)
	}
	if k < 2 {
		return nil, fmt.Errorf("breusch-pagan: design needs an intercept and at least one regressor, has %d columns", k)
	}
	if n <= k {
		return nil, &ols.InsufficientDataError{N: n, Need: k + 1}
	}

	u := make([]float64, n)
	var mean float64
	for i, e := range residuals {
		u[i] = e * e
		mean += u[i]
	}
	mean /= float64(n)
	if !o.robust {
		if mean == 0 {
			return nil, &DegenerateAuxiliaryRegressionError{Err: errZeroVariance}
		}
		for i := range u {
			u[i] /= mean
		}
	}

	aux, err := ols.Solve(design, u)
	if err != nil {
		var sde *ols.SingularDesignError
		if errors.As(err, &sde) {
			return nil, &DegenerateAuxiliaryRegressionError{Err: err}
		}
		return nil, fmt.Errorf("breusch-pagan: %w", err)
	}
	if aux.TSS == 0 {
		return nil, &DegenerateAuxiliaryRegressionError{Err: errZeroVariance}
	}

	res := &Result{DF1: k - 1, DF2: n - k, N: n, Robust: o.robust}
	if o.robust {
		res.LM = float64(n) * aux.RSquared()
	} else {
		res.LM = aux.ESS() / 2
	}
	res.LMPValue = clamp01(distuv.ChiSquared{K: float64(res.DF1)}.Survival(res.LM))

	if aux.RSS == 0 {
		res.F = math.Inf(1)
		res.FPValue = 0
		return res, nil
	}
	res.F = (aux.ESS() / float64(res.DF1)) / (aux.RSS / float64(res.DF2))
	res.FPValue = clamp01(distuv.F{D1: float64(res.DF1), D2: float64(res.DF2)}.Survival(res.F))
	return res, nil
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
