// Package spectrum computes byte-scaled frequency magnitudes from a window of
// recent audio samples.
package spectrum

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	// FFTSize is the number of samples per analysis window.
	FFTSize = 128
	// Bins is the number of frequency bins returned by Bytes.
	Bins = FFTSize / 2

	defaultSmoothing = 0.8
	defaultMinDB     = -100.0
	defaultMaxDB     = -30.0
)

// Analyzer keeps the most recent FFTSize mono samples and turns them into
// Bins bytes, each the smoothed magnitude of one bin mapped linearly from
// [minDB, maxDB] to [0, 255]. Safe for concurrent use.
type Analyzer struct {
	mu        sync.Mutex
	fft       *fourier.FFT
	ring      [FFTSize]float64
	pos       int
	filled    int
	smoothed  [Bins]float64
	smoothing float64
	minDB     float64
	maxDB     float64

	frame  []float64
	coeffs []complex128
}

// New creates an analyzer with the default smoothing and decibel range.
func New() *Analyzer {
	return &Analyzer{
		fft:       fourier.NewFFT(FFTSize),
		smoothing: defaultSmoothing,
		minDB:     defaultMinDB,
		maxDB:     defaultMaxDB,
		frame:     make([]float64, FFTSize),
		coeffs:    make([]complex128, FFTSize/2+1),
	}
}

// Write appends stereo samples, downmixed to mono.
func (a *Analyzer) Write(samples [][2]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = (s[0] + s[1]) / 2
		a.pos = (a.pos + 1) % FFTSize
	}
	a.filled = min(FFTSize, a.filled+len(samples))
}

// Reset clears buffered samples and smoothing history.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ring = [FFTSize]float64{}
	a.smoothed = [Bins]float64{}
	a.pos = 0
	a.filled = 0
}

// Bytes returns a fresh Bins-byte slice for the current window. Before any
// samples were written all values are zero.
func (a *Analyzer) Bytes() []byte {
	out := make([]byte, Bins)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.filled == 0 {
		return out
	}

	// Oldest sample first.
	for i := range FFTSize {
		a.frame[i] = a.ring[(a.pos+i)%FFTSize]
	}
	window.Blackman(a.frame)
	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	for i := range Bins {
		mag := cmplxAbs(a.coeffs[i]) / FFTSize
		a.smoothed[i] = a.smoothing*a.smoothed[i] + (1-a.smoothing)*mag
		out[i] = a.toByte(a.smoothed[i])
	}
	return out
}

func (a *Analyzer) toByte(mag float64) byte {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 * (db - a.minDB) / (a.maxDB - a.minDB)
	switch {
	case scaled <= 0 || math.IsNaN(scaled):
		return 0
	case scaled >= 255:
		return 255
	default:
		return byte(scaled)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
