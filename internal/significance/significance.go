// Package significance estimates how many bits of a noisy sample are
// statistically significant with respect to a reference value.
//
// Two estimators are provided:
//
//   - [CNH]: centered normality hypothesis. Assumes the sample error is
//     normally distributed and derives the bit count from its standard
//     deviation with a chi-square confidence correction.
//   - [General]: non-parametric. Counts the bits on which every sample agrees
//     with the reference, provided the sample is large enough for the
//     requested probability/confidence pair.
//
// All functions are pure and safe for concurrent use.
package significance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxBits is the value reported when no variance is observable (a single
// sample, or all samples identical): the float64 mantissa width.
const MaxBits = 52

var (
	ErrEmptySample    = errors.New("significance: empty sample")
	ErrNonFinite      = errors.New("significance: non-finite value in sample")
	ErrTooFewSamples  = errors.New("significance: too few samples for requested probability")
	ErrInvalidSetting = errors.New("significance: probability and confidence must be in (0, 1)")
	ErrUnknownMethod  = errors.New("significance: unknown method")
	ErrUnknownError   = errors.New("significance: unknown error mode")
)

type Method string

const (
	CNH     Method = "cnh"
	General Method = "general"
)

// ErrorMode selects how a sample is compared to the reference.
type ErrorMode string

const (
	Relative ErrorMode = "relative"
	Absolute ErrorMode = "absolute"
)

type Significance struct {
	Bits   float64
	Digits float64
}

type Estimator struct {
	Method      Method
	Error       ErrorMode
	Probability float64
	Confidence  float64
}

func Default() Estimator {
	return Estimator{
		Method:      CNH,
		Error:       Relative,
		Probability: 0.95,
		Confidence:  0.95,
	}
}

// Estimate runs the default estimator.
func Estimate(samples []float64, reference float64) (Significance, error) {
	return Default().Estimate(samples, reference)
}

func (e Estimator) Validate() error {
	if !(e.Probability > 0 && e.Probability < 1) || !(e.Confidence > 0 && e.Confidence < 1) {
		return ErrInvalidSetting
	}
	switch e.Method {
	case CNH, General:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, e.Method)
	}
	switch e.Error {
	case Relative, Absolute:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownError, e.Error)
	}
	return nil
}

func (e Estimator) Estimate(samples []float64, reference float64) (Significance, error) {
	if err := e.Validate(); err != nil {
		return Significance{}, err
	}
	if len(samples) == 0 {
		return Significance{}, ErrEmptySample
	}
	if math.IsNaN(reference) || math.IsInf(reference, 0) {
		return Significance{}, fmt.Errorf("%w: reference %v", ErrNonFinite, reference)
	}
	for _, x := range samples {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Significance{}, ErrNonFinite
		}
	}

	z := e.deviations(samples, reference)

	var bits float64
	var err error
	switch e.Method {
	case General:
		bits, err = generalBits(z, e.Probability, e.Confidence)
	default:
		bits = cnhBits(z, e.Probability, e.Confidence)
	}
	if err != nil {
		return Significance{}, err
	}

	return Significance{Bits: bits, Digits: ChangeBasis(bits, 10)}, nil
}

// deviations maps each sample to its error against the reference. A relative
// comparison against a zero reference is undefined, so it degrades to absolute.
func (e Estimator) deviations(samples []float64, reference float64) []float64 {
	z := make([]float64, len(samples))
	relative := e.Error == Relative && reference != 0
	for i, x := range samples {
		if relative {
			z[i] = x/reference - 1
		} else {
			z[i] = x - reference
		}
	}
	return z
}

func cnhBits(z []float64, probability, confidence float64) float64 {
	n := len(z)
	if n < 2 {
		return MaxBits
	}
	sigma := stat.PopStdDev(z, nil)
	if sigma == 0 {
		return MaxBits
	}

	chi2 := distuv.ChiSquared{K: float64(n - 1)}.Quantile((1 - confidence) / 2)
	inorm := distuv.UnitNormal.Quantile((probability + 1) / 2)
	delta := 0.5*math.Log2(float64(n-1)/chi2) + math.Log2(inorm)

	return -math.Log2(sigma) - delta
}

// MinSamples is the Bernoulli sample size needed to claim the given
// probability with the given confidence.
func MinSamples(probability, confidence float64) int {
	return int(math.Ceil(math.Log(1-confidence) / math.Log(probability)))
}

func generalBits(z []float64, probability, confidence float64) (float64, error) {
	if need := MinSamples(probability, confidence); len(z) < need {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrTooFewSamples, len(z), need)
	}

	maxAbs := 0.0
	for _, v := range z {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if maxAbs == 0 {
		return MaxBits, nil
	}

	k := 0
	for k < MaxBits && maxAbs <= math.Ldexp(1, -(k+1)) {
		k++
	}
	return float64(k), nil
}

// ChangeBasis converts a count of base-2 digits to base b.
func ChangeBasis(bits float64, b float64) float64 {
	if b == 10 {
		return bits * math.Log10(2)
	}
	return bits * math.Log(2) / math.Log(b)
}
