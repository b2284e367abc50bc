package ols

import "fmt"

// InsufficientDataError indicates fewer observations than the model needs.
type InsufficientDataError struct {
	N    int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d observations, need at least %d", e.N, e.Need)
}

// SingularDesignError indicates a rank-deficient design, e.g. a constant predictor.
type SingularDesignError struct {
	Reason string
}

func (e *SingularDesignError) Error() string {
	if e == nil || e.Reason == "" {
		return "singular design matrix"
	}
	return fmt.Sprintf("singular design matrix: %s", e.Reason)
}
