package optimizer

import "math/rand"

// Sampler proposes the next candidate given the trials run so far.
type Sampler interface {
	Suggest(space SearchSpace, history []Trial) ParameterSet
}

// NewSampler returns the sampler registered under name, seeded with seed.
// Unknown names fall back to TPE.
func NewSampler(name string, seed int64) Sampler {
	if name == "random" {
		return NewRandomSampler(seed)
	}
	return NewTPESampler(seed)
}

// RandomSampler draws every parameter uniformly within its bounds.
type RandomSampler struct {
	rng *rand.Rand
}

func NewRandomSampler(seed int64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSampler) Suggest(space SearchSpace, _ []Trial) ParameterSet {
	return sampleUniform(s.rng, space)
}

func sampleUniform(rng *rand.Rand, space SearchSpace) ParameterSet {
	ps := make(ParameterSet, len(space))
	for _, p := range space {
		ps[p.Name] = uniformParam(rng, p)
	}
	return ps
}

func uniformParam(rng *rand.Rand, p Parameter) float64 {
	if p.Type == ParamTypeInt {
		lo, hi := int64(p.Min), int64(p.Max)
		return float64(lo + rng.Int63n(hi-lo+1))
	}
	return p.Min + rng.Float64()*(p.Max-p.Min)
}
