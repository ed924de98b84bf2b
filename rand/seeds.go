package rand

import (
	"math"

	"github.com/seehuhn/mt19937"
)

// SeedSequence hands out chain seeds derived from a single run seed. We use
// the Mersenne twister here (and not Mulberry32) so that the derived seeds are
// not simply the first outputs of a chain's own generator.
type SeedSequence struct {
	mt *mt19937.MT19937
}

// NewSeedSequence creates a sequence from the master seed
func NewSeedSequence(master int64) *SeedSequence {
	mt := mt19937.New()
	mt.Seed(master)
	return &SeedSequence{mt: mt}
}

// Next returns the next seed, always valid for NewGenerator
func (s *SeedSequence) Next() int64 {
	return int64(s.mt.Uint64() & math.MaxUint32)
}
