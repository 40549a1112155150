// SPDX-License-Identifier: MIT
package audiotest

import (
	"errors"
	"math"
	"os"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
	testFrequency  = 440.0 // A4 note
)

func TestSineWave(t *testing.T) {
	wave := SineWave(testSize, testSampleRate, testFrequency, 0.5)
	if len(wave) != testSize {
		t.Fatalf("len = %d, want %d", len(wave), testSize)
	}
	if wave[0] != 0 {
		t.Errorf("first sample = %v, want 0", wave[0])
	}
	for i, v := range wave {
		if math.Abs(v) > 0.5+1e-12 {
			t.Fatalf("sample %d = %v exceeds amplitude", i, v)
		}
	}
}

func TestComplexWaveBounded(t *testing.T) {
	for i, v := range ComplexWave(testSize, testSampleRate) {
		if math.Abs(v) > 1 {
			t.Fatalf("sample %d = %v outside [-1, 1]", i, v)
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	magnitudes := make([]float64, testSize)
	for i := range magnitudes {
		// Creates a "hill" with peak at position testSize/4.
		magnitudes[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"Full Range", 0, testSize - 1, testSize / 4},
		{"Clamped Range", -10, testSize + 10, testSize / 4},
		{"Right Of Peak", testSize / 2, testSize - 1, testSize / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(magnitudes, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.want)
			}
		})
	}

	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}

func TestWriteWAV(t *testing.T) {
	path := WriteWAV(t, t.TempDir(), "tone.wav", SineWave(100, 8000, 440, 0.5), 8000, 1)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// 44-byte canonical header plus 2 bytes per sample.
	if info.Size() != 44+200 {
		t.Errorf("size = %d, want %d", info.Size(), 44+200)
	}
}

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	if err := mt.Send("a"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	mt.Err = errors.New("boom")
	if err := mt.Send("b"); err == nil {
		t.Error("expected injected error")
	}
	if got := mt.Messages(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Messages() = %v, want [a]", got)
	}
	if err := mt.Close(); err != nil || !mt.Closed {
		t.Errorf("Close() = %v, Closed = %v", err, mt.Closed)
	}
}
