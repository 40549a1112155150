// SPDX-License-Identifier: MIT

// Package fft runs fixed-size windowed real FFTs over successive frames with
// pre-allocated buffers, so a spectrogram can push hundreds of frames through
// one Processor without allocating per frame.
package fft

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Workspace holds pre-allocated buffers for FFT calculations.
type Workspace struct {
	input     []float64    // ...for real input samples (windowed)
	fftOutput []complex128 // ...for FFT complex output
	magnitude []float64    // ...for magnitude output
	window    []float64    // ...for window function coefficients
}

// Processor holds the FFT state for one frame size.
type Processor struct {
	size      int
	fftObj    *fourier.FFT
	workspace Workspace
}

// NewProcessor creates a processor for frames of len(window) samples. The
// window coefficients are copied.
func NewProcessor(window []float64) (*Processor, error) {
	size := len(window)
	if size < 2 {
		return nil, fmt.Errorf("fft size must be at least 2, got %d", size)
	}

	// Real input yields N/2 + 1 coefficients.
	outputSize := size/2 + 1

	coeffs := make([]float64, size)
	copy(coeffs, window)

	return &Processor{
		size:   size,
		fftObj: fourier.NewFFT(size),
		workspace: Workspace{
			input:     make([]float64, size),
			fftOutput: make([]complex128, outputSize),
			magnitude: make([]float64, outputSize),
			window:    coeffs,
		},
	}, nil
}

// Size returns the frame length in samples.
func (p *Processor) Size() int { return p.size }

// Bins returns the number of magnitude bins per frame (size/2 + 1).
func (p *Processor) Bins() int { return len(p.workspace.magnitude) }

// Magnitudes windows the frame, transforms it and returns |X_k| for every
// non-negative frequency bin. Frames shorter than Size are zero-padded; extra
// samples are ignored. The returned slice is reused by the next call.
func (p *Processor) Magnitudes(frame []float64) []float64 {
	for i := range p.size {
		if i < len(frame) {
			p.workspace.input[i] = frame[i] * p.workspace.window[i]
		} else {
			p.workspace.input[i] = 0
		}
	}

	p.fftObj.Coefficients(p.workspace.fftOutput, p.workspace.input)
	for i, c := range p.workspace.fftOutput {
		p.workspace.magnitude[i] = cmplx.Abs(c)
	}
	return p.workspace.magnitude
}

// Frequency returns the center frequency in Hz of bin i, or 0 when i is out of
// range.
func (p *Processor) Frequency(i int, sampleRate float64) float64 {
	if i < 0 || i >= len(p.workspace.fftOutput) {
		return 0
	}
	return p.fftObj.Freq(i) * sampleRate
}
