// Package sampler produces synthetic (z, y) tables: a degree-20 Chebyshev
// polynomial evaluated in single precision, optionally under randomized
// rounding so repeated evaluations at one z scatter the way Monte Carlo
// arithmetic does.
package sampler

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/san-kum/sigbits/internal/dataset"
)

var ErrInvalidConfig = errors.New("sampler: invalid config")

// coefs of T20(z) = 1 + sum coefs[i] * z^(2(i+1)).
var coefs = [10]float32{
	-200., 6600., -84480., 549120., -2050048.,
	4659200., -6553600., 5570560., -2621440., 524288.,
}

type Chebyshev struct {
	// Precision is the virtual precision in bits of the randomized
	// rounding. Zero evaluates deterministically.
	Precision int
	rng       *rand.Rand
}

func NewChebyshev(precision int, rng *rand.Rand) *Chebyshev {
	return &Chebyshev{Precision: precision, rng: rng}
}

func (c *Chebyshev) round(x float32) float32 {
	if c.Precision <= 0 || c.rng == nil || x == 0 {
		return x
	}
	u := 2*c.rng.Float64() - 1
	return float32(float64(x) * (1 + math.Ldexp(u, -c.Precision)))
}

// Eval computes T20(z) with float32 arithmetic, perturbing every operation.
func (c *Chebyshev) Eval(z float32) float32 {
	r := float32(1.0)
	z2 := c.round(z * z)
	p := z2

	for i := 0; i < len(coefs); i++ {
		r = c.round(r + c.round(coefs[i]*p))
		p = c.round(p * z2)
	}
	return r
}

type Config struct {
	Points    int
	Samples   int
	ZMin      float64
	ZMax      float64
	Precision int
	Seed      int64
}

func DefaultConfig() Config {
	return Config{
		Points:    200,
		Samples:   30,
		ZMin:      0,
		ZMax:      1,
		Precision: 24,
		Seed:      42,
	}
}

// Generate evaluates the polynomial Samples times at each of Points evenly
// spaced z values in [ZMin, ZMax]. A zero seed draws from the clock.
func Generate(cfg Config) ([]dataset.Observation, error) {
	if cfg.Points < 1 || cfg.Samples < 1 || cfg.ZMax < cfg.ZMin {
		return nil, ErrInvalidConfig
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	ch := NewChebyshev(cfg.Precision, rand.New(rand.NewSource(seed)))

	obs := make([]dataset.Observation, 0, cfg.Points*cfg.Samples)
	for i := 0; i < cfg.Points; i++ {
		z := cfg.ZMin
		if cfg.Points > 1 {
			z += (cfg.ZMax - cfg.ZMin) * float64(i) / float64(cfg.Points-1)
		}
		zf := float32(z)
		for s := 0; s < cfg.Samples; s++ {
			obs = append(obs, dataset.Observation{Z: float64(zf), Y: float64(ch.Eval(zf))})
		}
	}
	return obs, nil
}
