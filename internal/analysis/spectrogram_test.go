// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"

	"audioscope/internal/audiotest"

	"gonum.org/v1/gonum/mat"
)

func segmentOf(samples []float64, rate int) *Segment {
	return &Segment{Samples: samples, SampleRate: rate, Range: SampleRange{0, len(samples)}}
}

func TestSTFTShape(t *testing.T) {
	lengths := []int{1, 100, 511, 512, 2047, 2048, 2049, 4096, 110250}

	for _, center := range []bool{true, false} {
		stft := DefaultSTFT()
		stft.Center = center

		for _, n := range lengths {
			var want int
			switch {
			case center:
				want = 1 + n/512
			case n < 2048:
				want = 1
			default:
				want = 1 + (n-2048)/512
			}

			spec, err := stft.Compute(segmentOf(make([]float64, n), testRate))
			if err != nil {
				t.Fatalf("center=%v n=%d: Compute() error = %v", center, n, err)
			}
			if spec.Bins() != 1025 {
				t.Errorf("center=%v n=%d: Bins() = %d, want 1025", center, n, spec.Bins())
			}
			if spec.Frames() != want || stft.FrameCount(n) != want {
				t.Errorf("center=%v n=%d: Frames() = %d, FrameCount = %d, want %d",
					center, n, spec.Frames(), stft.FrameCount(n), want)
			}
		}
	}
}

func TestSTFTSilenceIsFloor(t *testing.T) {
	spec, err := DefaultSTFT().Compute(segmentOf(make([]float64, 4096), testRate))
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if mat.Max(spec.DB) != -80 || mat.Min(spec.DB) != -80 {
		t.Errorf("silent range = [%v, %v], want all -80", mat.Min(spec.DB), mat.Max(spec.DB))
	}
}

func TestSTFTNaNIsFloor(t *testing.T) {
	samples := audiotest.SineWave(4096, testRate, 1000, 0.5)
	samples[3000] = math.NaN()

	spec, err := DefaultSTFT().Compute(segmentOf(samples, testRate))
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	r, c := spec.DB.Dims()
	for i := range r {
		for j := range c {
			if v := spec.DB.At(i, j); math.IsNaN(v) || v < -80 || v > 0 {
				t.Fatalf("DB(%d,%d) = %v outside [-80, 0]", i, j, v)
			}
		}
	}
}

func TestSTFTSinePeak(t *testing.T) {
	const f0 = 1000.0
	samples := audiotest.SineWave(testRate, testRate, f0, 0.5)

	spec, err := DefaultSTFT().Compute(segmentOf(samples, testRate))
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if mat.Max(spec.DB) != 0 {
		t.Errorf("max dB = %v, want 0", mat.Max(spec.DB))
	}
	if mat.Min(spec.DB) < -80 {
		t.Errorf("min dB = %v, want >= -80", mat.Min(spec.DB))
	}

	// Away from the padded edges every frame peaks at the bin nearest f0.
	wantBin := int(math.Round(f0 * 2048 / testRate))
	mid := spec.Frames() / 2
	col := mat.Col(nil, mid, spec.DB)
	if got := audiotest.FindPeakBin(col, 0, len(col)-1); got != wantBin {
		t.Errorf("peak bin = %d (%.1f Hz), want %d", got, spec.FrequencyOf(got), wantBin)
	}
}

func TestSTFTAxes(t *testing.T) {
	seg := &Segment{Samples: make([]float64, 4096), SampleRate: 8000, Range: SampleRange{8000, 12096}}

	centered, err := DefaultSTFT().Compute(seg)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got := centered.FrequencyOf(1024); got != 4000 {
		t.Errorf("FrequencyOf(1024) = %v, want Nyquist 4000", got)
	}
	if got := centered.TimeOf(0); got != 1 {
		t.Errorf("TimeOf(0) = %v, want 1", got)
	}
	if got := centered.TimeOf(2); math.Abs(got-1.128) > 1e-12 {
		t.Errorf("TimeOf(2) = %v, want 1.128", got)
	}

	stft := DefaultSTFT()
	stft.Center = false
	uncentered, err := stft.Compute(seg)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got := uncentered.TimeOf(0); math.Abs(got-1.128) > 1e-12 {
		t.Errorf("uncentered TimeOf(0) = %v, want 1.128", got)
	}
}

func TestSTFTValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*STFT)
	}{
		{"Window too small", func(s *STFT) { s.WindowSize = 1 }},
		{"Zero hop", func(s *STFT) { s.HopLength = 0 }},
		{"Negative hop", func(s *STFT) { s.HopLength = -512 }},
		{"Zero range", func(s *STFT) { s.TopDB = 0 }},
		{"NaN range", func(s *STFT) { s.TopDB = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stft := DefaultSTFT()
			tt.modify(&stft)
			_, err := stft.Compute(segmentOf(make([]float64, 16), testRate))
			if !errors.Is(err, ErrInvalidTransform) {
				t.Errorf("Compute() error = %v, want ErrInvalidTransform", err)
			}
		})
	}

	if err := DefaultSTFT().Validate(); err != nil {
		t.Errorf("DefaultSTFT().Validate() = %v", err)
	}
}

func TestToDB(t *testing.T) {
	data := []float64{1, 0.1, 0.01, 0, 1e-9}
	toDB(data, 1, 80)
	want := []float64{0, -20, -40, -80, -80}
	for i := range want {
		if math.Abs(data[i]-want[i]) > 1e-9 {
			t.Errorf("data[%d] = %v, want %v", i, data[i], want[i])
		}
	}

	clipped := []float64{1, 0.001}
	toDB(clipped, 1, 40)
	if clipped[1] != -40 {
		t.Errorf("clipped = %v, want -40", clipped[1])
	}
}

func BenchmarkSTFTFiveSeconds(b *testing.B) {
	seg := segmentOf(audiotest.ComplexWave(testRate*5, testRate), testRate)
	stft := DefaultSTFT()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := stft.Compute(seg); err != nil {
			b.Fatal(err)
		}
	}
}
