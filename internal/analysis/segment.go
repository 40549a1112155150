// SPDX-License-Identifier: MIT

// Package analysis turns a time range of a decoded recording into the three
// views audioscope renders: the raw waveform, an STFT spectrogram in dB and
// the single-sided magnitude spectrum of the whole segment.
package analysis

import (
	"math"
	"strconv"
	"strings"

	"audioscope/internal/audio"
)

// TimeRange is a requested segment in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

// ParseTimeRange parses user-entered bounds. Anything that is not a finite
// number yields an *InvalidInputError; ordering is checked by Select.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := parseSeconds("start", start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := parseSeconds("end", end)
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Start: s, End: e}, nil
}

func parseSeconds(field, text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &InvalidInputError{Field: field, Value: text, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InvalidInputError{Field: field, Value: text}
	}
	return v, nil
}

// SampleRange is a half-open index range [Start, End).
type SampleRange struct {
	Start int
	End   int
}

// Len returns End - Start.
func (r SampleRange) Len() int { return r.End - r.Start }

// SampleRange converts tr to indices into a buffer of n samples at rate Hz.
// Both bounds round half away from zero and End is clamped to n. When
// rounding collapses the range, End moves one sample forward, or Start one
// sample back at the end of the buffer, so the result is never empty for a
// valid tr.
func (tr TimeRange) SampleRange(rate, n int) SampleRange {
	start := int(math.Round(tr.Start * float64(rate)))
	end := int(math.Round(tr.End * float64(rate)))

	start = max(0, min(start, n))
	end = min(end, n)

	if end <= start {
		if start < n {
			end = start + 1
		} else {
			start, end = n-1, n
		}
	}
	return SampleRange{Start: start, End: end}
}

// Segment is a contiguous slice of a buffer. Samples alias the buffer and
// have their capacity capped, so appending never writes into it.
type Segment struct {
	Samples    []float64
	SampleRate int
	Range      SampleRange
}

// Select validates tr against buf and returns the segment it covers.
// Violations of 0 ≤ start < end ≤ duration (NaN included) are an
// *InvalidRangeError.
func Select(buf *audio.Buffer, tr TimeRange) (*Segment, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}

	duration := buf.Duration()
	if !(tr.Start >= 0 && tr.Start < tr.End && tr.End <= duration) {
		return nil, &InvalidRangeError{Start: tr.Start, End: tr.End, Duration: duration}
	}

	r := tr.SampleRange(buf.SampleRate, buf.Len())
	return &Segment{
		Samples:    buf.Samples[r.Start:r.End:r.End],
		SampleRate: buf.SampleRate,
		Range:      r,
	}, nil
}

// Len returns the number of samples.
func (s *Segment) Len() int { return len(s.Samples) }

// Offset returns the segment start in seconds from the buffer start.
func (s *Segment) Offset() float64 {
	return float64(s.Range.Start) / float64(s.SampleRate)
}

// Duration returns the segment length in seconds.
func (s *Segment) Duration() float64 {
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// TimeOf returns the absolute time in seconds of sample i.
func (s *Segment) TimeOf(i int) float64 {
	return s.Offset() + float64(i)/float64(s.SampleRate)
}
