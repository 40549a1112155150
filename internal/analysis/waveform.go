// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Waveform returns seg unchanged; the waveform view plots the samples as
// they are.
func Waveform(seg *Segment) *Segment { return seg }

// Levels summarizes a segment's amplitude.
type Levels struct {
	Peak float64 // Largest absolute sample
	RMS  float64 // Root mean square
}

// Levels computes the peak and RMS amplitude. An empty segment has zero
// levels.
func (s *Segment) Levels() Levels {
	if len(s.Samples) == 0 {
		return Levels{}
	}
	peak := math.Max(math.Abs(floats.Max(s.Samples)), math.Abs(floats.Min(s.Samples)))
	rms := floats.Norm(s.Samples, 2) / math.Sqrt(float64(len(s.Samples)))
	return Levels{Peak: peak, RMS: rms}
}
