// SPDX-License-Identifier: MIT

/*
Package audio holds decoded recordings and the collaborators that move audio
in and out of the process:
  - Buffer, the immutable mono sample buffer a session analyzes
  - FileDecoder, which turns wav/aiff/mp3/ogg files into a Buffer
  - Player, which plays a sample range through PortAudio
*/
package audio

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBuffer       = errors.New("audio buffer has no samples")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// Buffer is a decoded mono recording. It is never modified after NewBuffer
// returns; segments alias its samples.
type Buffer struct {
	Samples    []float64 // Mono amplitudes, nominally in [-1, 1]
	SampleRate int       // Hz
}

// NewBuffer validates and wraps decoded samples.
func NewBuffer(samples []float64, sampleRate int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSampleRate, sampleRate)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyBuffer
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// Len returns the number of samples.
func (b *Buffer) Len() int { return len(b.Samples) }

// Duration returns the length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(len(b.Samples)) / float64(b.SampleRate)
}
