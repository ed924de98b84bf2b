package sampler

import (
	"math"

	"github.com/pkg/errors"
)

// Iteration caps for the slice sampler. They bound the worst case cost of a
// single call on pathological densities.
const (
	SliceStepOutMax = 100
	SliceShrinkMax  = 1000
)

// LogDensity1D is a univariate unnormalized log density
type LogDensity1D func(x float64) (float64, error)

// SliceSample takes one univariate slice sampling step from x0 (stepping out
// then shrinkage). If shrinkage doesn't find a point on the slice within
// SliceShrinkMax tries we give up and return x0 with exhausted=true: this is
// a legal (if lazy) MCMC move, not an error. Errors only come from f.
func SliceSample(f LogDensity1D, x0, width float64, rng RNG) (x float64, exhausted bool, err error) {
	if !(width > 0) {
		return x0, false, errors.Errorf("Slice width must be positive, got %g", width)
	}

	fx0, err := f(x0)
	if err != nil {
		return x0, false, errors.Wrapf(err, "Slice sampler could not evaluate start point %g", x0)
	}

	// Vertical level: log(y) = f(x0) - e, e ~ Exponential(1)
	logY := fx0 + math.Log(1.0-rng.Float64())

	// Randomly place the initial bracket around x0
	u := rng.Float64() * width
	left := x0 - u
	right := x0 + (width - u)

	above := func(v float64) (bool, error) {
		fv, err := f(v)
		if err != nil {
			return false, errors.Wrapf(err, "Slice sampler could not evaluate %g", v)
		}
		return fv > logY, nil
	}

	for i := 0; i < SliceStepOutMax; i++ {
		ok, err := above(left)
		if err != nil {
			return x0, false, err
		}
		if !ok {
			break
		}
		left -= width
	}

	for i := 0; i < SliceStepOutMax; i++ {
		ok, err := above(right)
		if err != nil {
			return x0, false, err
		}
		if !ok {
			break
		}
		right += width
	}

	for i := 0; i < SliceShrinkMax; i++ {
		x1 := left + rng.Float64()*(right-left)

		fx1, err := f(x1)
		if err != nil {
			return x0, false, errors.Wrapf(err, "Slice sampler could not evaluate %g", x1)
		}
		if fx1 >= logY {
			return x1, false, nil
		}

		if x1 < x0 {
			left = x1
		} else {
			right = x1
		}
	}

	return x0, true, nil
}
