package model

import (
	"math"

	"github.com/pkg/errors"
)

// Density is the target distribution: an unnormalized 2D log density and its
// gradient. Implementations must be pure functions of (x, y). An error means
// the point is outside the density's domain; samplers treat that as fatal for
// the current step and hand it back to the caller.
type Density interface {
	LogProbability(x, y float64) (float64, error)
	LogProbabilityGradient(x, y float64) (Vec, error)
}

// LogProbFunc is the signature for a bare log density
type LogProbFunc func(x, y float64) float64

// GradFunc is the signature for a bare log density gradient
type GradFunc func(x, y float64) Vec

// Func adapts plain Go functions to a Density. If Grad is nil we fall back to
// a central difference gradient.
//
// Only a NaN input point is an error. NaN or infinite results (overflow far
// out in the tails) are returned as is: they are numerical trouble, not a
// domain error, and samplers reject the move instead of failing.
type Func struct {
	Name    string
	LogProb LogProbFunc
	Grad    GradFunc
}

// NewFunc returns a Density from the given functions. grad may be nil.
func NewFunc(name string, logProb LogProbFunc, grad GradFunc) (*Func, error) {
	if logProb == nil {
		return nil, errors.Errorf("Density %s has no log probability function", name)
	}
	return &Func{Name: name, LogProb: logProb, Grad: grad}, nil
}

// LogProbability implements Density
func (f *Func) LogProbability(x, y float64) (float64, error) {
	if err := checkPoint(f.Name, x, y); err != nil {
		return 0, err
	}

	return f.LogProb(x, y), nil
}

// LogProbabilityGradient implements Density
func (f *Func) LogProbabilityGradient(x, y float64) (Vec, error) {
	if err := checkPoint(f.Name, x, y); err != nil {
		return Vec{}, err
	}

	if f.Grad == nil {
		return NumericGradient(f, x, y)
	}

	return f.Grad(x, y), nil
}

// GradientStep is the central difference step used by NumericGradient
const GradientStep = 1e-5

// NumericGradient estimates the gradient of d's log density at (x, y) by
// central differences.
func NumericGradient(d Density, x, y float64) (Vec, error) {
	const h = GradientStep

	eval := func(a, b float64) (float64, error) {
		lp, err := d.LogProbability(a, b)
		if err != nil {
			return 0, errors.Wrapf(err, "Numeric gradient failed near (%g, %g)", x, y)
		}
		return lp, nil
	}

	xp, err := eval(x+h, y)
	if err != nil {
		return Vec{}, err
	}
	xm, err := eval(x-h, y)
	if err != nil {
		return Vec{}, err
	}
	yp, err := eval(x, y+h)
	if err != nil {
		return Vec{}, err
	}
	ym, err := eval(x, y-h)
	if err != nil {
		return Vec{}, err
	}

	return Vec{(xp - xm) / (2 * h), (yp - ym) / (2 * h)}, nil
}

func checkPoint(name string, x, y float64) error {
	if math.IsNaN(x) || math.IsNaN(y) {
		return errors.Errorf("Density %s evaluated at NaN point (%g, %g)", name, x, y)
	}
	return nil
}
