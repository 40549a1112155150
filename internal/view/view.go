// SPDX-License-Identifier: MIT

// Package view holds rendered artifacts. Each of the three views owns one
// Slot; a slot shows a placeholder until its first artifact arrives,
// disposes of the previous artifact when replaced, and exports the current
// one to an image file.
package view

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Kind identifies one of the three views.
type Kind int

const (
	Waveform Kind = iota
	Spectrogram
	Spectrum
)

// Kinds lists every view in display order.
func Kinds() []Kind { return []Kind{Waveform, Spectrogram, Spectrum} }

func (k Kind) String() string {
	switch k {
	case Waveform:
		return "waveform"
	case Spectrogram:
		return "spectrogram"
	case Spectrum:
		return "spectrum"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DefaultFileName is the export name used when the user gives only a
// directory.
func (k Kind) DefaultFileName() string {
	switch k {
	case Waveform:
		return "waveform.png"
	case Spectrogram:
		return "spectrogram.png"
	case Spectrum:
		return "fft_spectrum.png"
	default:
		return k.String() + ".png"
	}
}

// ParseKind accepts a view name, case-insensitively. "fft" is an alias for
// the spectrum.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "waveform", "wave":
		return Waveform, nil
	case "spectrogram":
		return Spectrogram, nil
	case "spectrum", "fft", "fft_spectrum":
		return Spectrum, nil
	default:
		return 0, fmt.Errorf("unknown view %q (want waveform, spectrogram or spectrum)", name)
	}
}

// Artifact is a rendered view.
type Artifact interface {
	// Kind reports which view the artifact belongs to.
	Kind() Kind
	// Encode writes the artifact as an image in format ("png", "jpg",
	// "jpeg", "tif", "tiff" or "svg").
	Encode(w io.Writer, format string) error
	// Close releases the artifact. Encode must not be called afterwards.
	Close() error
}

// ErrUnsupportedFormat is wrapped by ExportError for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// FormatFromPath maps a file extension to an encoder format. A path without
// an extension is PNG.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "":
		return "png", nil
	case "png", "jpg", "jpeg", "tif", "tiff", "svg":
		return ext, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// NoArtifactError is returned when exporting a view that has not been
// analyzed yet.
type NoArtifactError struct {
	Kind Kind
}

func (e *NoArtifactError) Error() string {
	return fmt.Sprintf("nothing to export for the %s view: run an analysis first", e.Kind)
}

// ExportError wraps a failure to write an artifact to Path.
type ExportError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export %s view to %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
