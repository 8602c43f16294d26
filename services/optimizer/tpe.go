package optimizer

import (
	"math"
	"math/rand"
	"sort"
)

// TPESampler is a univariate Tree-structured Parzen Estimator. After a
// random start-up phase it splits finished trials into a good and a bad
// group by objective, fits a Parzen estimator to each and picks, per
// parameter, the candidate maximising l(x)/g(x).
type TPESampler struct {
	rng        *rand.Rand
	Startup    int
	Candidates int
}

func NewTPESampler(seed int64) *TPESampler {
	return &TPESampler{
		rng:        rand.New(rand.NewSource(seed)),
		Startup:    10,
		Candidates: 24,
	}
}

func (s *TPESampler) Suggest(space SearchSpace, history []Trial) ParameterSet {
	done := completed(history)
	if len(done) < s.Startup || len(done) < 2 {
		return sampleUniform(s.rng, space)
	}

	sort.SliceStable(done, func(i, j int) bool { return done[i].Objective < done[j].Objective })
	nBelow := gamma(len(done))
	below, above := done[:nBelow], done[nBelow:]

	ps := make(ParameterSet, len(space))
	for _, p := range space {
		ps[p.Name] = s.suggestParam(p, values(below, p.Name), values(above, p.Name))
	}
	return ps
}

func (s *TPESampler) suggestParam(p Parameter, below, above []float64) float64 {
	if p.Max == p.Min {
		return p.Min
	}
	l := newParzen(p, below)
	g := newParzen(p, above)

	best, bestScore := p.Min, math.Inf(-1)
	for i := 0; i < s.Candidates; i++ {
		x := p.Clamp(l.sample(s.rng))
		score := l.logPDF(x) - g.logPDF(x)
		if score > bestScore {
			best, bestScore = x, score
		}
	}
	return best
}

func completed(history []Trial) []Trial {
	out := make([]Trial, 0, len(history))
	for _, t := range history {
		if t.State == TrialComplete {
			out = append(out, t)
		}
	}
	return out
}

func values(trials []Trial, name string) []float64 {
	out := make([]float64, 0, len(trials))
	for _, t := range trials {
		if v, ok := t.Params[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// gamma is the size of the good group: ceil(10% of n), between 1 and 25.
func gamma(n int) int {
	k := int(math.Ceil(0.1 * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > 25 {
		k = 25
	}
	return k
}

// parzen is an equally weighted mixture of a uniform prior over the bounds
// and one Gaussian kernel per observation.
type parzen struct {
	lo, hi float64
	mus    []float64
	bw     float64
}

func newParzen(p Parameter, obs []float64) parzen {
	span := p.Max - p.Min
	bw := span * 0.5 / math.Pow(float64(len(obs)+1), 0.2)
	if bw < span/100 {
		bw = span / 100
	}
	return parzen{lo: p.Min, hi: p.Max, mus: obs, bw: bw}
}

func (z parzen) sample(rng *rand.Rand) float64 {
	k := rng.Intn(len(z.mus) + 1)
	if k == len(z.mus) {
		return z.lo + rng.Float64()*(z.hi-z.lo)
	}
	return z.mus[k] + rng.NormFloat64()*z.bw
}

func (z parzen) logPDF(x float64) float64 {
	w := 1 / float64(len(z.mus)+1)
	density := w / (z.hi - z.lo)
	norm := 1 / (z.bw * math.Sqrt(2*math.Pi))
	for _, mu := range z.mus {
		d := (x - mu) / z.bw
		density += w * norm * math.Exp(-0.5*d*d)
	}
	return math.Log(density)
}
