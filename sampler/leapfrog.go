package sampler

import "github.com/CraigKelly/hmc2d/model"

// PotentialGrad returns the gradient of the potential energy U at q
type PotentialGrad func(q model.Vec) (model.Vec, error)

// Leapfrog performs a single symplectic step of size eps: a half step in
// momentum, a full step in position, then a second momentum half step using
// the gradient at the new position. There is no randomness here, and running
// it backwards with negated momentum retraces the path.
func Leapfrog(q, p model.Vec, eps float64, gradU PotentialGrad) (model.Vec, model.Vec, error) {
	g, err := gradU(q)
	if err != nil {
		return q, p, err
	}
	p = p.Add(g.Scale(-eps / 2))

	q = q.Add(p.Scale(eps))

	g, err = gradU(q)
	if err != nil {
		return q, p, err
	}
	p = p.Add(g.Scale(-eps / 2))

	return q, p, nil
}
