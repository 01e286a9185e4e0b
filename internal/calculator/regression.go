package calculator

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput is the root of every input error returned by the estimator.
	ErrInvalidInput = errors.New("invalid regression input")
	// ErrInsufficientData means fewer than two observations were supplied.
	ErrInsufficientData = fmt.Errorf("%w: at least 2 observations required", ErrInvalidInput)
	// ErrZeroVariance means the independent series is constant.
	ErrZeroVariance = fmt.Errorf("%w: independent series has zero variance", ErrInvalidInput)
)

// DegeneratePolicy selects what happens when a fit is under-determined.
type DegeneratePolicy string

const (
	PolicyReject    DegeneratePolicy = "reject"
	PolicyZeroSlope DegeneratePolicy = "zero"
)

// ParsePolicy maps a config value to a DegeneratePolicy. Empty means reject.
func ParsePolicy(s string) (DegeneratePolicy, error) {
	switch DegeneratePolicy(s) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyZeroSlope:
		return PolicyZeroSlope, nil
	default:
		return "", fmt.Errorf("unknown degenerate policy %q", s)
	}
}

// Fit is the least-squares line dependent = Slope*independent + Intercept.
type Fit struct {
	Slope     float64
	Intercept float64
}

// FitLine solves the normal equations for a 2-parameter linear model.
func FitLine(independent, dependent []float64) (Fit, error) {
	if len(independent) != len(dependent) {
		return Fit{}, fmt.Errorf("%w: length mismatch %d vs %d", ErrInvalidInput, len(independent), len(dependent))
	}
	for i := range independent {
		if !finite(independent[i]) || !finite(dependent[i]) {
			return Fit{}, fmt.Errorf("%w: non-finite value at row %d", ErrInvalidInput, i)
		}
	}
	n := len(independent)
	if n < 2 {
		return Fit{}, ErrInsufficientData
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += independent[i]
		sumY += dependent[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	// Centered sums keep precision for large, tightly clustered prices.
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := independent[i] - meanX
		sxx += dx * dx
		sxy += dx * (dependent[i] - meanY)
	}
	if sxx == 0 {
		return Fit{}, ErrZeroVariance
	}

	slope := sxy / sxx
	return Fit{Slope: slope, Intercept: meanY - slope*meanX}, nil
}

// EstimateSlope returns the least-squares slope of dependent on independent.
// The intercept is computed and discarded. Degenerate input is rejected.
func EstimateSlope(independent, dependent []float64) (float64, error) {
	return Estimator{}.Slope(independent, dependent)
}

// Estimator computes slopes under a configurable degenerate-input policy.
type Estimator struct {
	Policy DegeneratePolicy
}

// Slope returns the regression slope. Under PolicyZeroSlope, fewer than two
// points or a constant independent series yield 0 instead of an error.
func (e Estimator) Slope(independent, dependent []float64) (float64, error) {
	fit, err := FitLine(independent, dependent)
	if err != nil {
		if e.Policy == PolicyZeroSlope && (errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrZeroVariance)) {
			return 0, nil
		}
		return 0, err
	}
	return fit.Slope, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
