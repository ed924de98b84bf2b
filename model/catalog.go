package model

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Params are the named numeric parameters for a catalogue density
type Params map[string]float64

// get returns the named parameter or def when missing
func (p Params) get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

type builder func(p Params) (Density, error)

var catalog = map[string]builder{
	"gaussian": newGaussian,
	"banana":   newBanana,
	"donut":    newDonut,
	"mixture":  newMixture,
	"funnel":   newFunnel,
}

// Names returns the sorted names of the built-in densities
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewDensity creates a built-in density by name. Missing parameters take
// their defaults; invalid ones are an error.
func NewDensity(name string, p Params) (Density, error) {
	b, ok := catalog[name]
	if !ok {
		return nil, errors.Errorf("Unknown density %q (known: %v)", name, Names())
	}
	if p == nil {
		p = Params{}
	}

	d, err := b(p)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not create density %s", name)
	}
	return d, nil
}

// gaussian: correlated bivariate normal
func newGaussian(p Params) (Density, error) {
	mx, my := p.get("mux", 0), p.get("muy", 0)
	sx, sy := p.get("sx", 1), p.get("sy", 1)
	rho := p.get("rho", 0)

	if sx <= 0 || sy <= 0 {
		return nil, errors.Errorf("Standard deviations must be positive: sx=%g sy=%g", sx, sy)
	}
	if rho <= -1 || rho >= 1 {
		return nil, errors.Errorf("Correlation must be in (-1, 1): rho=%g", rho)
	}

	k := 1.0 / (1.0 - rho*rho)
	logProb := func(x, y float64) float64 {
		zx, zy := (x-mx)/sx, (y-my)/sy
		return -0.5 * k * (zx*zx - 2*rho*zx*zy + zy*zy)
	}
	grad := func(x, y float64) Vec {
		zx, zy := (x-mx)/sx, (y-my)/sy
		return Vec{
			-k * (zx - rho*zy) / sx,
			-k * (zy - rho*zx) / sy,
		}
	}

	return NewFunc("gaussian", logProb, grad)
}

// banana: Rosenbrock style curved ridge, log p = -((a-x)^2 + b(y-x^2)^2)/20
func newBanana(p Params) (Density, error) {
	a, b := p.get("a", 1), p.get("b", 10)
	if b <= 0 {
		return nil, errors.Errorf("Banana curvature b must be positive: b=%g", b)
	}

	const scale = 1.0 / 20.0
	logProb := func(x, y float64) float64 {
		u, v := a-x, y-x*x
		return -scale * (u*u + b*v*v)
	}
	grad := func(x, y float64) Vec {
		u, v := a-x, y-x*x
		return Vec{
			scale * (2*u + 4*b*x*v),
			-scale * 2 * b * v,
		}
	}

	return NewFunc("banana", logProb, grad)
}

// donut: ring of the given radius, log p = -(r - R)^2 / (2 w^2)
func newDonut(p Params) (Density, error) {
	radius, width := p.get("radius", 2.5), p.get("width", 0.3)
	if radius < 0 || width <= 0 {
		return nil, errors.Errorf("Donut needs radius >= 0 and width > 0: radius=%g width=%g", radius, width)
	}

	w2 := width * width
	logProb := func(x, y float64) float64 {
		d := math.Hypot(x, y) - radius
		return -0.5 * d * d / w2
	}
	grad := func(x, y float64) Vec {
		r := math.Hypot(x, y)
		if r == 0 {
			return Vec{} // Symmetric: any direction is as good as another
		}
		c := -(r - radius) / (w2 * r)
		return Vec{c * x, c * y}
	}

	return NewFunc("donut", logProb, grad)
}

// mixture: equal weight isotropic normals at (-sep/2, 0) and (sep/2, 0)
func newMixture(p Params) (Density, error) {
	sep, sd := p.get("sep", 4), p.get("sd", 1)
	if sd <= 0 {
		return nil, errors.Errorf("Mixture sd must be positive: sd=%g", sd)
	}

	half := sep / 2
	v := sd * sd
	comps := func(x, y float64) (float64, float64) {
		a := -0.5 * ((x+half)*(x+half) + y*y) / v
		b := -0.5 * ((x-half)*(x-half) + y*y) / v
		return a, b
	}
	logProb := func(x, y float64) float64 {
		a, b := comps(x, y)
		return logSumExp(a, b)
	}
	grad := func(x, y float64) Vec {
		a, b := comps(x, y)
		wa := math.Exp(a - logSumExp(a, b)) // responsibility of first comp
		wb := 1 - wa
		return Vec{
			(wa*-(x+half) + wb*-(x-half)) / v,
			-y / v,
		}
	}

	return NewFunc("mixture", logProb, grad)
}

// funnel: Neal's funnel, y ~ N(0, 3^2) and x|y ~ N(0, exp(y/2)^2)
func newFunnel(p Params) (Density, error) {
	scale := p.get("scale", 3)
	if scale <= 0 {
		return nil, errors.Errorf("Funnel scale must be positive: scale=%g", scale)
	}

	logProb := func(x, y float64) float64 {
		return -0.5*y*y/(scale*scale) - 0.5*x*x*math.Exp(-y) - 0.5*y
	}
	grad := func(x, y float64) Vec {
		e := math.Exp(-y)
		return Vec{
			-x * e,
			-y/(scale*scale) + 0.5*x*x*e - 0.5,
		}
	}

	return NewFunc("funnel", logProb, grad)
}

func logSumExp(a, b float64) float64 {
	m := math.Max(a, b)
	if math.IsInf(m, -1) {
		return m
	}
	return m + math.Log(math.Exp(a-m)+math.Exp(b-m))
}
