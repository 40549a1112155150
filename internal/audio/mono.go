// SPDX-License-Identifier: MIT
package audio

import "math"

// MixToMono averages interleaved frames into a mono float64 signal. A
// trailing partial frame is dropped.
func MixToMono(interleaved []float32, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		for i, v := range interleaved {
			out[i] = float64(v)
		}
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float64, frames)
	inv := 1.0 / float64(channels)

	switch channels {
	case 2: // Stereo (most common)
		for f := range frames {
			idx := f << 1
			out[f] = (float64(interleaved[idx]) + float64(interleaved[idx+1])) * 0.5
		}
	default:
		for f := range frames {
			var sum float64
			base := f * channels
			for c := range channels {
				sum += float64(interleaved[base+c])
			}
			out[f] = sum * inv
		}
	}
	return out
}

// Resample converts a mono signal from one rate to another with Catmull-Rom
// interpolation. Downsampling first runs a one-pole low-pass at the target
// Nyquist frequency. The output holds ceil(len*to/from) samples.
func Resample(in []float64, from, to int) []float64 {
	if from <= 0 || to <= 0 || from == to || len(in) == 0 {
		out := make([]float64, len(in))
		copy(out, in)
		return out
	}

	src := in
	if to < from {
		src = lowPass(in, float64(to)/2, float64(from))
	}

	step := float64(from) / float64(to)
	n := int(math.Ceil(float64(len(in)) * float64(to) / float64(from)))
	out := make([]float64, n)
	last := len(src) - 1

	at := func(i int) float64 {
		if i < 0 {
			return src[0]
		}
		if i > last {
			return src[last]
		}
		return src[i]
	}

	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		x := pos - float64(idx)
		out[i] = cubicInterpolate(at(idx-1), at(idx), at(idx+1), at(idx+2), x)
	}
	return out
}

// cubicInterpolate evaluates the Catmull-Rom spline through y0..y3 at
// fraction x between y1 and y2.
func cubicInterpolate(y0, y1, y2, y3, x float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

// lowPass applies y[n] = a*x[n] + (1-a)*y[n-1] with the RC coefficient for
// cutoff Hz at rate Hz, seeded with the first sample.
func lowPass(in []float64, cutoff, rate float64) []float64 {
	dt := 1 / rate
	rc := 1 / (2 * math.Pi * cutoff)
	alpha := dt / (rc + dt)

	out := make([]float64, len(in))
	state := in[0]
	for i, v := range in {
		state = alpha*v + (1-alpha)*state
		out[i] = state
	}
	return out
}
