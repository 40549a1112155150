// SPDX-License-Identifier: MIT
package session

import (
	"fmt"
	"strings"
	"time"

	"audioscope/internal/analysis"
	"audioscope/internal/view"
)

// ViewOutcome records how one view fared in an analysis.
type ViewOutcome struct {
	View  string `json:"view"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report summarizes one analysis. It is what transports publish.
type Report struct {
	SessionID     string        `json:"session_id"`
	File          string        `json:"file"`
	Start         float64       `json:"start"`        // Requested start, seconds
	End           float64       `json:"end"`          // Requested end, seconds
	StartSample   int           `json:"start_sample"` // First sample index
	EndSample     int           `json:"end_sample"`   // One past the last sample index
	SampleRate    int           `json:"sample_rate"`
	Duration      float64       `json:"duration"` // Segment length, seconds
	Peak          float64       `json:"peak"`
	RMS           float64       `json:"rms"`
	PeakFrequency float64       `json:"peak_frequency"` // Strongest spectrum bin, Hz
	PeakMagnitude float64       `json:"peak_magnitude"`
	Bins          int           `json:"spectrogram_bins"`
	Frames        int           `json:"spectrogram_frames"`
	Views         []ViewOutcome `json:"views"`
	CreatedAt     time.Time     `json:"created_at"`

	spectrum *analysis.Spectrum
}

// SpectrumSeries returns the full spectrum, or nil if it was not computed.
func (r *Report) SpectrumSeries() *analysis.Spectrum { return r.spectrum }

// Failed lists the views that did not update.
func (r *Report) Failed() []string {
	var failed []string
	for _, v := range r.Views {
		if !v.OK {
			failed = append(failed, v.View)
		}
	}
	return failed
}

// String renders the one-line summary the CLI prints.
func (r *Report) String() string {
	return fmt.Sprintf("%.3fs-%.3fs (%d samples @ %d Hz): peak %.3f, rms %.3f, dominant %.1f Hz, spectrogram %dx%d",
		r.Start, r.End, r.EndSample-r.StartSample, r.SampleRate, r.Peak, r.RMS, r.PeakFrequency, r.Bins, r.Frames)
}

// ViewFailure is one view's error.
type ViewFailure struct {
	Kind view.Kind
	Err  error
}

// PartialError reports views that failed while the others updated. It is
// returned together with the Report; a selection failure is never a
// PartialError.
type PartialError struct {
	Failures []ViewFailure
}

func (e *PartialError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("analysis partially failed (%d of %d views): %s",
		len(e.Failures), len(view.Kinds()), strings.Join(parts, "; "))
}

// Unwrap exposes every view error to errors.Is and errors.As.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
