// SPDX-License-Identifier: MIT

// Package session is the analysis workflow behind every front end: open a
// file, analyze a time range into the three views, export them.
//
// A Session is not safe for concurrent use; front ends that accept
// concurrent input serialize their calls.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"audioscope/internal/analysis"
	"audioscope/internal/audio"
	applog "audioscope/internal/log"
	"audioscope/internal/transport"
	"audioscope/internal/view"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

// ErrNoAudio is returned when analyzing before a file was opened.
var ErrNoAudio = errors.New("no audio loaded: open a file first")

// Renderer turns analysis results into view artifacts.
type Renderer interface {
	Waveform(seg *analysis.Segment) (view.Artifact, error)
	Spectrogram(s *analysis.Spectrogram) (view.Artifact, error)
	Spectrum(s *analysis.Spectrum) (view.Artifact, error)
	Placeholder(kind view.Kind) (view.Artifact, error)
}

// Options configures the transforms.
type Options struct {
	STFT     analysis.STFT
	Parallel bool // Compute the three views concurrently
}

// DefaultOptions returns the default STFT, serial.
func DefaultOptions() Options {
	return Options{STFT: analysis.DefaultSTFT()}
}

// Session holds one loaded recording and the three view slots.
type Session struct {
	id         uuid.UUID
	decoder    audio.Decoder
	renderer   Renderer
	opts       Options
	path       string
	buffer     *audio.Buffer
	slots      map[view.Kind]*view.Slot
	transports []transport.Transport
	last       *Report
}

// New returns a session with every slot showing its placeholder.
func New(decoder audio.Decoder, renderer Renderer, opts Options) (*Session, error) {
	if err := opts.STFT.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:       uuid.New(),
		decoder:  decoder,
		renderer: renderer,
		opts:     opts,
		slots:    make(map[view.Kind]*view.Slot, len(view.Kinds())),
	}
	for _, kind := range view.Kinds() {
		placeholder, err := renderer.Placeholder(kind)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "creating %s placeholder", kind)
		}
		s.slots[kind] = view.NewSlot(kind, placeholder)
	}

	applog.Debugf("Session %s: created (window %d, hop %d, parallel %v)",
		s.shortID(), opts.STFT.WindowSize, opts.STFT.HopLength, opts.Parallel)
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id.String() }

func (s *Session) shortID() string { return s.ID()[:8] }

// Attach adds a transport that receives every successful Report.
func (s *Session) Attach(t transport.Transport) {
	s.transports = append(s.transports, t)
}

// OpenFile decodes path and makes it the current recording. On failure the
// previous recording is dropped and the *audio.DecodeError is returned.
func (s *Session) OpenFile(path string) error {
	buf, err := s.decoder.Decode(path)
	if err != nil {
		s.buffer, s.path = nil, ""
		return err
	}
	s.buffer, s.path = buf, path
	applog.Infof("Session %s: opened %s (%.2fs)", s.shortID(), filepath.Base(path), buf.Duration())
	return nil
}

// Loaded reports whether a recording is open.
func (s *Session) Loaded() bool { return s.buffer != nil }

// Path returns the open file, or "".
func (s *Session) Path() string { return s.path }

// Duration returns the open recording's length in seconds, or 0.
func (s *Session) Duration() float64 {
	if s.buffer == nil {
		return 0
	}
	return s.buffer.Duration()
}

// Slot returns the slot for kind.
func (s *Session) Slot(kind view.Kind) *view.Slot { return s.slots[kind] }

// LastReport returns the most recent report, or nil.
func (s *Session) LastReport() *Report { return s.last }

// Segment validates tr against the open recording.
func (s *Session) Segment(tr analysis.TimeRange) (*analysis.Segment, error) {
	if s.buffer == nil {
		return nil, ErrNoAudio
	}
	return analysis.Select(s.buffer, tr)
}

// AnalyzeText parses user-entered bounds and analyzes them.
func (s *Session) AnalyzeText(start, end string) (*Report, error) {
	tr, err := analysis.ParseTimeRange(start, end)
	if err != nil {
		return nil, err
	}
	return s.Analyze(tr)
}

// Analyze selects tr and recomputes all three views. A selection error
// leaves every slot untouched. Otherwise each view that succeeds replaces
// its slot; if any fails, the report is returned with a *PartialError.
func (s *Session) Analyze(tr analysis.TimeRange) (*Report, error) {
	seg, err := s.Segment(tr)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	res := s.compute(seg)

	report := &Report{
		SessionID:   s.ID(),
		File:        s.path,
		Start:       tr.Start,
		End:         tr.End,
		StartSample: seg.Range.Start,
		EndSample:   seg.Range.End,
		SampleRate:  seg.SampleRate,
		Duration:    seg.Duration(),
		CreatedAt:   began,
	}
	lv := seg.Levels()
	report.Peak, report.RMS = lv.Peak, lv.RMS
	if res.spectrogram != nil {
		report.Bins, report.Frames = res.spectrogram.Bins(), res.spectrogram.Frames()
	}
	if res.spectrum != nil {
		report.spectrum = res.spectrum
		report.PeakFrequency, report.PeakMagnitude = res.spectrum.Peak()
	}

	var partial PartialError
	for _, kind := range view.Kinds() {
		out := res.views[kind]
		if out.err == nil {
			if err := s.slots[kind].Replace(out.artifact); err != nil {
				out.artifact.Close()
				out.err = err
			}
		}
		outcome := ViewOutcome{View: kind.String(), OK: out.err == nil}
		if out.err != nil {
			outcome.Error = out.err.Error()
			partial.Failures = append(partial.Failures, ViewFailure{Kind: kind, Err: out.err})
			applog.Warnf("Session %s: %s view failed: %v", s.shortID(), kind, out.err)
		}
		report.Views = append(report.Views, outcome)
	}
	s.last = report

	applog.Infof("Session %s: analyzed %s in %s", s.shortID(), report, time.Since(began).Round(time.Millisecond))

	if len(partial.Failures) > 0 {
		return report, &partial
	}

	s.publish(report)
	return report, nil
}

type viewResult struct {
	artifact view.Artifact
	err      error
}

type results struct {
	views       map[view.Kind]viewResult
	spectrogram *analysis.Spectrogram
	spectrum    *analysis.Spectrum
}

// compute runs the three transform+render jobs, serially or fork-join. Each
// job writes only its own fields.
func (s *Session) compute(seg *analysis.Segment) *results {
	res := &results{views: make(map[view.Kind]viewResult, 3)}
	var waveform, spectrogram, spectrum viewResult

	jobs := []func(){
		func() {
			waveform = guard(view.Waveform, func() (view.Artifact, error) {
				return s.renderer.Waveform(analysis.Waveform(seg))
			})
		},
		func() {
			spectrogram = guard(view.Spectrogram, func() (view.Artifact, error) {
				m, err := s.opts.STFT.Compute(seg)
				if err != nil {
					return nil, err
				}
				res.spectrogram = m
				return s.renderer.Spectrogram(m)
			})
		},
		func() {
			spectrum = guard(view.Spectrum, func() (view.Artifact, error) {
				sp := analysis.ComputeSpectrum(seg)
				res.spectrum = sp
				return s.renderer.Spectrum(sp)
			})
		},
	}

	if s.opts.Parallel {
		var wg sync.WaitGroup
		for _, job := range jobs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				job()
			}()
		}
		wg.Wait()
	} else {
		for _, job := range jobs {
			job()
		}
	}

	res.views[view.Waveform] = waveform
	res.views[view.Spectrogram] = spectrogram
	res.views[view.Spectrum] = spectrum
	return res
}

// guard runs one view job, turning a panic or a nil artifact into an error.
func guard(kind view.Kind, job func() (view.Artifact, error)) (out viewResult) {
	defer func() {
		if r := recover(); r != nil {
			out = viewResult{err: fmt.Errorf("%s view panicked: %v", kind, r)}
		}
	}()

	a, err := job()
	if err == nil && a == nil {
		err = fmt.Errorf("%s renderer returned no artifact", kind)
	}
	return viewResult{artifact: a, err: err}
}

func (s *Session) publish(report *Report) {
	for _, t := range s.transports {
		if err := t.Send(report); err != nil {
			applog.Warnf("Session %s: transport %T: %v", s.shortID(), t, err)
		}
	}
}

// Export writes one view's current artifact to path.
func (s *Session) Export(kind view.Kind, path string) error {
	slot, ok := s.slots[kind]
	if !ok {
		return fmt.Errorf("unknown view %v", kind)
	}
	return slot.Export(path)
}

// ExportAll writes every view into dir under its default file name and
// returns the paths written. Failures are joined; a view that fails does not
// stop the others.
func (s *Session) ExportAll(dir string) ([]string, error) {
	var written []string
	var errs []error
	for _, kind := range view.Kinds() {
		path := filepath.Join(dir, kind.DefaultFileName())
		if err := s.Export(kind, path); err != nil {
			errs = append(errs, err)
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

// Close releases every artifact and transport.
func (s *Session) Close() error {
	var errs []error
	for _, kind := range view.Kinds() {
		if err := s.slots[kind].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, t := range s.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.transports = nil
	return errors.Join(errs...)
}
