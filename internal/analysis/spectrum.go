// SPDX-License-Identifier: MIT
package analysis

import (
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Spectrum is the single-sided amplitude spectrum of a whole segment.
// Frequencies[k] = k·SampleRate/N and Magnitudes[k] = 2/N·|X_k| for
// k < N/2, so a full-scale sine reads as its amplitude.
type Spectrum struct {
	Frequencies []float64
	Magnitudes  []float64
	SampleRate  int
	N           int // Transform length (segment samples)
}

// ComputeSpectrum transforms the whole segment. An empty segment yields an
// empty series.
func ComputeSpectrum(seg *Segment) *Spectrum {
	n := len(seg.Samples)
	spec := &Spectrum{SampleRate: seg.SampleRate, N: n}

	half := n / 2
	if half == 0 {
		spec.Frequencies = []float64{}
		spec.Magnitudes = []float64{}
		return spec
	}

	coeffs := fourier.NewFFT(n).Coefficients(nil, seg.Samples)

	spec.Frequencies = make([]float64, half)
	spec.Magnitudes = make([]float64, half)
	step := float64(seg.SampleRate) / float64(n)
	for k := range half {
		spec.Frequencies[k] = float64(k) * step
		spec.Magnitudes[k] = cmplx.Abs(coeffs[k])
	}
	floats.Scale(2/float64(n), spec.Magnitudes)

	return spec
}

// Len returns the number of bins.
func (s *Spectrum) Len() int { return len(s.Frequencies) }

// Band returns the bins with frequency ≤ maxHz. The result shares storage
// with s.
func (s *Spectrum) Band(maxHz float64) *Spectrum {
	cut := sort.Search(len(s.Frequencies), func(i int) bool {
		return s.Frequencies[i] > maxHz
	})
	return &Spectrum{
		Frequencies: s.Frequencies[:cut:cut],
		Magnitudes:  s.Magnitudes[:cut:cut],
		SampleRate:  s.SampleRate,
		N:           s.N,
	}
}

// Peak returns the frequency and magnitude of the largest bin, or zeros for
// an empty series.
func (s *Spectrum) Peak() (frequency, magnitude float64) {
	if len(s.Magnitudes) == 0 {
		return 0, 0
	}
	i := floats.MaxIdx(s.Magnitudes)
	return s.Frequencies[i], s.Magnitudes[i]
}
