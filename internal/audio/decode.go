// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	applog "audioscope/internal/log"

	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned for file extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// DecodeError reports a file that could not be turned into a Buffer.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder turns a file into a mono Buffer.
type Decoder interface {
	Decode(path string) (*Buffer, error)
}

// pcm is interleaved float audio straight out of a format reader.
type pcm struct {
	samples    []float32
	channels   int
	sampleRate int
}

// formatReader decodes one container format.
type formatReader func(r io.ReadSeeker) (*pcm, error)

// Registry maps lower-case file extensions (".wav") to format readers.
type Registry struct {
	readers map[string]formatReader
	mtx     sync.Mutex
}

// NewRegistry returns a registry with every built-in format.
func NewRegistry() *Registry {
	r := &Registry{readers: make(map[string]formatReader)}
	r.register(readWAV, ".wav", ".wave")
	r.register(readAIFF, ".aif", ".aiff")
	r.register(readMP3, ".mp3")
	r.register(readVorbis, ".ogg", ".oga")
	return r
}

func (r *Registry) register(fn formatReader, exts ...string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	for _, ext := range exts {
		r.readers[strings.ToLower(ext)] = fn
	}
}

func (r *Registry) get(ext string) (formatReader, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	fn, ok := r.readers[strings.ToLower(ext)]
	return fn, ok
}

// Extensions lists the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// FileDecoder decodes files by extension, mixes them down to mono and
// resamples to TargetRate when it is non-zero.
type FileDecoder struct {
	Registry   *Registry
	TargetRate int
}

// NewFileDecoder returns a decoder over the built-in formats.
func NewFileDecoder(targetRate int) *FileDecoder {
	return &FileDecoder{Registry: NewRegistry(), TargetRate: targetRate}
}

var _ Decoder = (*FileDecoder)(nil)

// Decode implements Decoder. Every failure is a *DecodeError.
func (d *FileDecoder) Decode(path string) (*Buffer, error) {
	buf, err := d.decode(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	applog.Infof("Decoder: loaded %s (%d samples @ %d Hz, %.2fs)", filepath.Base(path), buf.Len(), buf.SampleRate, buf.Duration())
	return buf, nil
}

func (d *FileDecoder) decode(path string) (*Buffer, error) {
	ext := filepath.Ext(path)
	read, ok := d.Registry.get(ext)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	p, err := read(f)
	if err != nil {
		return nil, err
	}
	if p.channels <= 0 {
		return nil, errors.Errorf("invalid channel count %d", p.channels)
	}

	mono := MixToMono(p.samples, p.channels)
	rate := p.sampleRate
	if d.TargetRate > 0 && d.TargetRate != rate {
		applog.Debugf("Decoder: resampling %d Hz -> %d Hz", rate, d.TargetRate)
		mono = Resample(mono, rate, d.TargetRate)
		rate = d.TargetRate
	}

	return NewBuffer(mono, rate)
}
