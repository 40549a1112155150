// SPDX-License-Identifier: MIT

// Package audiotest provides signal generators, WAV fixtures and transport
// doubles for tests.
package audiotest

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SineWave returns n samples of a sine at frequency Hz and amplitude amp.
func SineWave(n, sampleRate int, frequency, amp float64) []float64 {
	buffer := make([]float64, n)
	for i := range buffer {
		t := float64(i) / float64(sampleRate)
		buffer[i] = amp * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// ComplexWave returns a 440 Hz fundamental with two harmonics.
func ComplexWave(n, sampleRate int) []float64 {
	buffer := make([]float64, n)
	for i := range buffer {
		tm := float64(i) / float64(sampleRate)
		buffer[i] = math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

// WriteWAV encodes samples (interleaved when channels > 1) as 16-bit PCM
// into dir/name and returns the path.
func WriteWAV(t testing.TB, dir, name string, samples []float64, sampleRate, channels int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		s = max(-1, min(1, s))
		data[i] = int(math.Round(s * 32767))
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
	return path
}

// MockTransport records everything sent to it.
type MockTransport struct {
	mtx    sync.Mutex
	Sent   []any
	Closed bool
	Err    error // Returned from Send when set
}

// Send stores v for later inspection instead of transmitting.
func (m *MockTransport) Send(v any) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, v)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.Closed = true
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MockTransport) Messages() []any {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return append([]any(nil), m.Sent...)
}
