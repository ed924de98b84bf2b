package diagnostics

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/CraigKelly/hmc2d/model"
)

// DefaultBins is the histogram resolution used when none is given
const DefaultBins = 20

// Divergence represents the distances between two chains' marginal
// histograms, one value per axis. Both measures are 0 for identical
// histograms and 1 for histograms with disjoint support.
type Divergence struct {
	Hellinger model.Vec `json:"hellinger"`
	JSDiverge model.Vec `json:"jsd"`
}

// MarginalDivergence bins both sample sets on a shared grid per axis and
// compares the resulting marginal distributions.
func MarginalDivergence(a, b []model.Vec, bins int) (*Divergence, error) {
	if len(a) < 1 || len(b) < 1 {
		return nil, errors.Wrapf(ErrInsufficientSamples, "Divergence needs samples in both sets (%d, %d)", len(a), len(b))
	}
	if bins < 1 {
		bins = DefaultBins
	}

	d := &Divergence{}

	hx1, hx2 := histograms(a, b, 0, bins)
	d.Hellinger.X = HellingerDiff(hx1, hx2)
	d.JSDiverge.X = JSDivergence(hx1, hx2)

	hy1, hy2 := histograms(a, b, 1, bins)
	d.Hellinger.Y = HellingerDiff(hy1, hy2)
	d.JSDiverge.Y = JSDivergence(hy1, hy2)

	return d, nil
}

// histograms builds normalized histograms for a and b on one axis using
// bins equal width bins covering both sets
func histograms(a, b []model.Vec, axis int, bins int) ([]float64, []float64) {
	xa, xb := axisValues(a, axis), axisValues(b, axis)
	sort.Float64s(xa)
	sort.Float64s(xb)

	lo := math.Min(xa[0], xb[0])
	hi := math.Max(xa[len(xa)-1], xb[len(xb)-1])

	// stat.Histogram wants every value strictly below the last divider
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	fill := func(x []float64) []float64 {
		h := stat.Histogram(nil, dividers, x, nil)
		floats.Scale(1/float64(len(x)), h)
		return h
	}

	return fill(xa), fill(xb)
}

// HellingerDiff returns the Hellinger distance between two normalized
// distributions over the same bins: sqrt(sum((sqrt(p) - sqrt(q))**2)) / sqrt(2)
func HellingerDiff(p1 []float64, p2 []float64) float64 {
	errSum := 0.0
	for i, p := range p1 {
		d := math.Sqrt(p) - math.Sqrt(p2[i])
		errSum += d * d
	}
	return math.Sqrt(errSum) / math.Sqrt2
}

// klDivergence returns the Kullback–Leibler divergence, which is
// non-symmetric! This is strictly a subroutine for JS Divergence, so there
// is no error checking and the arrays are assumed normalized.
// klDivergence(P, Q) <==> D_{KL}(P || Q)
func klDivergence(v1 []float64, v2 []float64) float64 {
	diverge := 0.0
	for i, p1 := range v1 {
		if p1 <= 0 {
			continue // 0 log 0 == 0
		}
		diverge += p1 * math.Log2(p1/v2[i])
	}
	return diverge
}

// JSDivergence returns the Jensen-Shannon divergence (base 2), which is a
// symmetric generalization of the KL divergence
func JSDivergence(p1 []float64, p2 []float64) float64 {
	mid := make([]float64, len(p1))
	for i := range p1 {
		mid[i] = (p1[i] + p2[i]) * 0.5
	}
	return 0.5 * (klDivergence(p1, mid) + klDivergence(p2, mid))
}

// WindowDrift compares the older and newer halves of a window of recent
// samples. A large divergence means the chain is still moving between
// regions.
func WindowDrift(first, second []model.Vec, bins int) (*Divergence, error) {
	d, err := MarginalDivergence(first, second, bins)
	if err != nil {
		return nil, errors.Wrap(err, "Window drift needs a full window")
	}
	return d, nil
}
