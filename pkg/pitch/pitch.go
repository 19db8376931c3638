// Package pitch estimates the fundamental frequency of a monophonic audio frame
// using the McLeod Pitch Method.
package pitch

import (
	"math"
	"math/cmplx"

	"github.com/andrepxx/go-dsp-guitar/fft"
	"github.com/metalblueberry/bard/internal/numeric"
)

const (
	// FrameSize is the number of samples analysed per capture cycle.
	FrameSize = 4096

	// MinClarity is the lowest NSDF peak accepted as a pitch.
	MinClarity = 0.8

	// MinFrequency and MaxFrequency bound the plausible instrument range in Hz.
	MinFrequency = 50.0
	MaxFrequency = 2000.0

	// keyMaximumCutoff selects the first key maximum within this fraction of
	// the highest one, which favours the fundamental over its sub-octaves.
	keyMaximumCutoff = 0.93

	silenceEnergy = 1e-12
)

// Estimate is one per-frame pitch estimate.
type Estimate struct {
	Frequency float64
	Clarity   float64
}

// NoPitch is returned for frames without a trustworthy fundamental.
var NoPitch = Estimate{}

// Valid reports whether e carries a pitch.
func (e Estimate) Valid() bool {
	return e.Frequency > 0
}

/*
 * Estimator holds the scratch buffers of the normalized square difference
 * function. Buffers are reused between frames, so an Estimator must not be
 * shared between goroutines.
 */
type Estimator struct {
	fourierTransform fft.FourierTransform
	samples          []float64
	bufCorrelation   []float64
	bufFFT           []complex128
	nsdf             []float64
	keyMaxima        []int
}

// NewEstimator creates an estimator with its own transform.
func NewEstimator() *Estimator {
	return &Estimator{
		fourierTransform: fft.CreateFourierTransform(),
	}
}

// Estimate returns the pitch of frame, or NoPitch when the frame is silent,
// unclear or outside [MinFrequency, MaxFrequency].
func (est *Estimator) Estimate(frame []float32, sampleRate float64) Estimate {
	n := len(frame)

	if n < 4 || sampleRate <= 0 {
		return NoPitch
	}

	energy := est.load(frame)

	if energy < silenceEnergy {
		return NoPitch
	}

	maxLag := int(math.Ceil(sampleRate / MinFrequency))

	if maxLag > n-2 {
		maxLag = n - 2
	}

	if !est.autocorrelate(n, energy) {
		return NoPitch
	}

	est.normalize(n, maxLag+1, energy)
	period, clarity, ok := est.pickPeak(maxLag)

	if !ok {
		return NoPitch
	}

	frequency := sampleRate / period

	if clarity < MinClarity || !numeric.Within(frequency, MinFrequency, MaxFrequency) {
		return NoPitch
	}

	return Estimate{
		Frequency: frequency,
		Clarity:   clarity,
	}
}

func (est *Estimator) load(frame []float32) float64 {
	n := len(frame)

	if cap(est.samples) < n {
		est.samples = make([]float64, n)
	}

	est.samples = est.samples[:n]
	energy := 0.0

	for i, v := range frame {
		s := float64(v)
		est.samples[i] = s
		energy += s * s
	}

	return energy
}

/*
 * Compute the autocorrelation of the loaded samples through the spectrum:
 * zero pad to twice the length, transform, multiply each bin with its
 * complex conjugate and transform back.
 *
 * The result is rescaled so that lag zero equals the frame energy, which
 * makes it independent of the scaling convention of the transform.
 */
func (est *Estimator) autocorrelate(n int, energy float64) bool {
	twoN := uint64(2 * n)
	fftSize, _ := fft.NextPowerOfTwo(twoN)

	if uint64(len(est.bufCorrelation)) != fftSize {
		est.bufCorrelation = make([]float64, fftSize)
	}

	if uint64(len(est.bufFFT)) != fftSize {
		est.bufFFT = make([]complex128, fftSize)
	}

	bufCorrelation := est.bufCorrelation
	bufFFT := est.bufFFT
	copy(bufCorrelation[0:n], est.samples)
	fft.ZeroFloat(bufCorrelation[n:fftSize])
	ft := est.fourierTransform

	if err := ft.RealFourier(bufCorrelation, bufFFT, fft.SCALING_DEFAULT); err != nil {
		return false
	}

	for i, elem := range bufFFT {
		bufFFT[i] = elem * cmplx.Conj(elem)
	}

	if err := ft.RealInverseFourier(bufFFT, bufCorrelation, fft.SCALING_DEFAULT); err != nil {
		return false
	}

	zeroLag := bufCorrelation[0]

	if zeroLag <= 0 || math.IsNaN(zeroLag) || math.IsInf(zeroLag, 0) {
		return false
	}

	scale := energy / zeroLag

	for i := 0; i < n; i++ {
		bufCorrelation[i] *= scale
	}

	return true
}

/*
 * Turn the autocorrelation r into the NSDF n(t) = 2 r(t) / m(t), where
 * m(t) is the energy of both overlapping parts and shrinks by two squared
 * samples per lag step.
 */
func (est *Estimator) normalize(n int, lags int, energy float64) {

	if cap(est.nsdf) < lags+1 {
		est.nsdf = make([]float64, lags+1)
	}

	nsdf := est.nsdf[:lags+1]
	samples := est.samples
	m := 2.0 * energy

	for tau := 0; tau <= lags; tau++ {

		if tau > 0 {
			head := samples[tau-1]
			tail := samples[n-tau]
			m -= head*head + tail*tail
		}

		if m > silenceEnergy {
			nsdf[tau] = 2.0 * est.bufCorrelation[tau] / m
		} else {
			nsdf[tau] = 0
		}

	}

	est.nsdf = nsdf
}

/*
 * Find key maxima (the highest point of every positive lobe after the first
 * negative zero crossing), choose the first one close enough to the highest
 * and refine it with parabolic interpolation.
 */
func (est *Estimator) pickPeak(maxLag int) (float64, float64, bool) {
	nsdf := est.nsdf
	keyMaxima := est.keyMaxima[:0]
	pos := 0

	for pos < maxLag && nsdf[pos] > 0 {
		pos++
	}

	for pos < maxLag && nsdf[pos] <= 0 {
		pos++
	}

	for pos < maxLag {
		best := -1

		for pos < maxLag && nsdf[pos] > 0 {

			if best < 0 || nsdf[pos] > nsdf[best] {
				best = pos
			}

			pos++
		}

		if best > 0 {
			keyMaxima = append(keyMaxima, best)
		}

		for pos < maxLag && nsdf[pos] <= 0 {
			pos++
		}

	}

	est.keyMaxima = keyMaxima

	if len(keyMaxima) == 0 {
		return 0, 0, false
	}

	highest := math.Inf(-1)

	for _, idx := range keyMaxima {
		highest = math.Max(highest, nsdf[idx])
	}

	cutoff := keyMaximumCutoff * highest
	chosen := keyMaxima[0]

	for _, idx := range keyMaxima {

		if nsdf[idx] >= cutoff {
			chosen = idx
			break
		}

	}

	left := nsdf[chosen-1]
	center := nsdf[chosen]
	right := nsdf[chosen+1]
	denominator := left - 2.0*center + right
	shift := 0.0

	if denominator != 0 {
		shift = numeric.Clamp(0.5*(left-right)/denominator, -0.5, 0.5)
	}

	peak := center - 0.25*(left-right)*shift
	return float64(chosen) + shift, numeric.Clamp(peak, 0.0, 1.0), true
}
