// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	"audioscope/internal/fft"
	applog "audioscope/internal/log"

	"gonum.org/v1/gonum/mat"
)

// amin is the magnitude floor applied before taking logarithms.
const amin = 1e-5

// STFT describes a short-time Fourier transform and its dB scaling.
type STFT struct {
	WindowSize int        // Frame length in samples
	HopLength  int        // Samples between frame starts
	TopDB      float64    // Floor below the peak, in dB
	Window     WindowFunc // Analysis window
	Center     bool       // Pad WindowSize/2 zeros on each side so frame k is centered at k*HopLength
}

// DefaultSTFT returns the 2048/512 Hann transform with an 80 dB range.
func DefaultSTFT() STFT {
	return STFT{
		WindowSize: 2048,
		HopLength:  512,
		TopDB:      80,
		Window:     Hann,
		Center:     true,
	}
}

// Validate reports configurations Compute cannot run.
func (s STFT) Validate() error {
	switch {
	case s.WindowSize < 2:
		return fmt.Errorf("%w: window size must be at least 2, got %d", ErrInvalidTransform, s.WindowSize)
	case s.HopLength <= 0:
		return fmt.Errorf("%w: hop length must be positive, got %d", ErrInvalidTransform, s.HopLength)
	case !(s.TopDB > 0):
		return fmt.Errorf("%w: top dB must be positive, got %g", ErrInvalidTransform, s.TopDB)
	}
	return nil
}

// Bins returns the number of frequency rows, WindowSize/2 + 1.
func (s STFT) Bins() int { return s.WindowSize/2 + 1 }

// FrameCount returns the number of frames for n input samples. Centered
// framing gives 1 + n/hop. Uncentered framing gives 1 + (n-W)/hop, and a
// single zero-padded frame when n < W.
func (s STFT) FrameCount(n int) int {
	if s.Center {
		return 1 + n/s.HopLength
	}
	if n < s.WindowSize {
		return 1
	}
	return 1 + (n-s.WindowSize)/s.HopLength
}

// Spectrogram is a dB-scaled STFT magnitude matrix. DB has one row per
// frequency bin and one column per frame; 0 dB is the segment's peak
// magnitude and nothing is below -TopDB.
type Spectrogram struct {
	DB         *mat.Dense
	SampleRate int
	WindowSize int
	HopLength  int
	TopDB      float64
	Offset     float64 // Segment start in seconds
	Center     bool
}

// Bins returns the number of frequency rows.
func (s *Spectrogram) Bins() int {
	r, _ := s.DB.Dims()
	return r
}

// Frames returns the number of time columns.
func (s *Spectrogram) Frames() int {
	_, c := s.DB.Dims()
	return c
}

// FrequencyOf returns the frequency in Hz of a row.
func (s *Spectrogram) FrequencyOf(bin int) float64 {
	return float64(bin) * float64(s.SampleRate) / float64(s.WindowSize)
}

// TimeOf returns the absolute time in seconds of a frame's center.
func (s *Spectrogram) TimeOf(frame int) float64 {
	center := frame * s.HopLength
	if !s.Center {
		center += s.WindowSize / 2
	}
	return s.Offset + float64(center)/float64(s.SampleRate)
}

// Compute runs the transform over seg. Segments shorter than a window are
// zero-padded, a silent segment maps to -TopDB everywhere and non-finite
// values become the floor. The only error is an invalid configuration.
func (s STFT) Compute(seg *Segment) (*Spectrogram, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	proc, err := fft.NewProcessor(s.Window.Coefficients(s.WindowSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransform, err)
	}

	samples := seg.Samples
	bins := proc.Bins()
	frames := s.FrameCount(len(samples))

	pad := 0
	if s.Center {
		pad = s.WindowSize / 2
	}

	// Row-major bins x frames; frame k lands in column k.
	data := make([]float64, bins*frames)
	frame := make([]float64, s.WindowSize)
	peak := 0.0

	for k := range frames {
		fillFrame(frame, samples, k*s.HopLength-pad)
		mags := proc.Magnitudes(frame)
		for b, m := range mags {
			data[b*frames+k] = m
			if m > peak {
				peak = m
			}
		}
	}

	toDB(data, peak, s.TopDB)

	applog.Debugf("Analysis: STFT %d bins x %d frames (window %d, hop %d, %v, peak %.4g)",
		bins, frames, s.WindowSize, s.HopLength, s.Window, peak)

	var offset float64
	if seg.SampleRate > 0 {
		offset = seg.Offset()
	}

	return &Spectrogram{
		DB:         mat.NewDense(bins, frames, data),
		SampleRate: seg.SampleRate,
		WindowSize: s.WindowSize,
		HopLength:  s.HopLength,
		TopDB:      s.TopDB,
		Offset:     offset,
		Center:     s.Center,
	}, nil
}

// fillFrame copies samples[start:start+len(frame)] into frame, with zeros
// wherever the window hangs off either end.
func fillFrame(frame, samples []float64, start int) {
	for i := range frame {
		j := start + i
		if j >= 0 && j < len(samples) {
			frame[i] = samples[j]
		} else {
			frame[i] = 0
		}
	}
}

// toDB rewrites magnitudes in place as 20·log10(max(amin,m)/max(amin,peak)),
// clipped at -topDB. A zero peak means silence and yields the floor.
func toDB(data []float64, peak, topDB float64) {
	if !(peak > 0) || math.IsInf(peak, 0) {
		for i := range data {
			data[i] = -topDB
		}
		return
	}

	ref := 20 * math.Log10(math.Max(amin, peak))
	for i, m := range data {
		db := 20*math.Log10(math.Max(amin, m)) - ref
		if math.IsNaN(db) || db < -topDB {
			db = -topDB
		}
		data[i] = db
	}
}
