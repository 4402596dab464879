package engine

import "math"

// RNG is a deterministic pseudo-random source: mulberry32 uniforms, polar
// Box-Muller normals with one cached spare, and Poisson sampling via Knuth
// multiplication for small means and Atkinson's logistic-envelope rejection
// for large ones. Given the same seed and call sequence the output is
// bit-reproducible, which the replay and determinism tests rely on.
type RNG struct {
	state    uint32
	spare    float64
	hasSpare bool
}

// NewRNG creates a generator from a 32-bit seed. A zero seed is remapped to
// a fixed non-zero constant.
func NewRNG(seed uint32) *RNG {
	if seed == 0 {
		seed = 0x6d2b79f5
	}
	return &RNG{state: seed}
}

// NewRNGFromString hashes an arbitrary string to a 32-bit seed.
func NewRNGFromString(seed string) *RNG {
	return NewRNG(HashSeed(seed))
}

// HashSeed folds a string into a 32-bit state with a Knuth-style mix.
func HashSeed(s string) uint32 {
	var x uint32
	for i := 0; i < len(s); i++ {
		x ^= uint32(s[i])
		x = x + 0x9e3779b9 + (x << 6) + (x >> 2)
	}
	if x == 0 {
		x = 0x6d2b79f5
	}
	return x
}

// Reseed restarts the generator from a new seed, dropping any cached spare.
// The zero-seed remap matches NewRNG.
func (r *RNG) Reseed(seed uint32) {
	if seed == 0 {
		seed = 0x6d2b79f5
	}
	r.state = seed
	r.spare = 0
	r.hasSpare = false
}

// Next returns a uniform sample in [0, 1).
func (r *RNG) Next() float64 {
	r.state += 0x6d2b79f5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Normal returns a standard-normal sample. The polar transform yields two
// values per rejection loop; the second is cached and returned on the next
// call.
func (r *RNG) Normal() float64 {
	if r.hasSpare {
		r.hasSpare = false
		return r.spare
	}
	var u, v, s float64
	for {
		u = r.Next()*2 - 1
		v = r.Next()*2 - 1
		s = u*u + v*v
		if s != 0 && s < 1 {
			break
		}
	}
	m := math.Sqrt(-2 * math.Log(s) / s)
	r.spare = v * m
	r.hasSpare = true
	return u * m
}

// Poisson returns a sample with the given mean. Knuth's product of uniforms
// is exact but costs O(lambda) draws, so large means switch to Atkinson's
// rejection scheme with a Stirling log-factorial.
func (r *RNG) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	if lambda < 30 {
		limit := math.Exp(-lambda)
		p := 1.0
		k := 0
		for {
			k++
			p *= r.Next()
			if p <= limit {
				return k - 1
			}
		}
	}
	c := 0.767 - 3.36/lambda
	beta := math.Pi / math.Sqrt(3*lambda)
	alpha := beta * lambda
	k := math.Log(c) - lambda - math.Log(beta)
	for {
		u := r.Next()
		x := (alpha - math.Log((1-u)/u)) / beta
		n := math.Floor(x + 0.5)
		if n < 0 {
			continue
		}
		v := r.Next()
		y := alpha - beta*x
		denom := 1 + math.Exp(y)
		lhs := y + math.Log(v/(denom*denom))
		rhs := k + n*math.Log(lambda) - logFactorial(n)
		if lhs <= rhs {
			return int(n)
		}
	}
}

// logFactorial approximates ln(n!) with Stirling's formula.
func logFactorial(n float64) float64 {
	if n < 2 {
		return 0
	}
	return n*math.Log(n) - n + 0.5*math.Log(2*math.Pi*n)
}
