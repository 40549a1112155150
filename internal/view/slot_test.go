// SPDX-License-Identifier: MIT
package view

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type fakeArtifact struct {
	kind    Kind
	payload string
	closed  bool
	failEnc bool
}

func (f *fakeArtifact) Kind() Kind { return f.kind }

func (f *fakeArtifact) Encode(w io.Writer, format string) error {
	if f.closed {
		return errors.New("encode after close")
	}
	if f.failEnc {
		return errors.New("encoder exploded")
	}
	_, err := fmt.Fprintf(w, "%s:%s", format, f.payload)
	return err
}

func (f *fakeArtifact) Close() error {
	f.closed = true
	return nil
}

func TestSlotInitialState(t *testing.T) {
	placeholder := &fakeArtifact{kind: Waveform, payload: "placeholder"}
	s := NewSlot(Waveform, placeholder)

	if s.Display() != placeholder {
		t.Error("Display() should return the placeholder before analysis")
	}
	if _, ok := s.Current(); ok {
		t.Error("Current() should be empty before analysis")
	}
}

func TestSlotReplaceDisposesPrevious(t *testing.T) {
	s := NewSlot(Spectrogram, nil)
	first := &fakeArtifact{kind: Spectrogram, payload: "first"}
	second := &fakeArtifact{kind: Spectrogram, payload: "second"}

	if err := s.Replace(first); err != nil {
		t.Fatalf("Replace(first) error = %v", err)
	}
	if err := s.Replace(second); err != nil {
		t.Fatalf("Replace(second) error = %v", err)
	}

	if !first.closed {
		t.Error("previous artifact was not closed")
	}
	if second.closed {
		t.Error("current artifact was closed")
	}
	if got, ok := s.Current(); !ok || got != second {
		t.Errorf("Current() = %v, %v, want second", got, ok)
	}
	if s.Display() != second {
		t.Error("Display() should return the current artifact")
	}

	// Replacing with the same artifact must not close it.
	if err := s.Replace(second); err != nil {
		t.Fatalf("Replace(second) again error = %v", err)
	}
	if second.closed {
		t.Error("re-replacing closed the current artifact")
	}
}

func TestSlotReplaceRejects(t *testing.T) {
	current := &fakeArtifact{kind: Spectrum}
	s := NewSlot(Spectrum, nil)
	if err := s.Replace(current); err != nil {
		t.Fatal(err)
	}

	if err := s.Replace(nil); err == nil {
		t.Error("Replace(nil) should fail")
	}
	if err := s.Replace(&fakeArtifact{kind: Waveform}); err == nil {
		t.Error("Replace with the wrong kind should fail")
	}
	if got, _ := s.Current(); got != current || current.closed {
		t.Error("rejected Replace touched the slot")
	}
}

func TestSlotExport(t *testing.T) {
	dir := t.TempDir()
	s := NewSlot(Waveform, nil)
	if err := s.Replace(&fakeArtifact{kind: Waveform, payload: "wave"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		file string
		want string
	}{
		{"PNG", "out.png", "png:wave"},
		{"JPEG upper case", "out.JPEG", "jpeg:wave"},
		{"SVG", "out.svg", "svg:wave"},
		{"No extension", "out", "png:wave"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := s.Export(path); err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("file = %q, want %q", got, tt.want)
			}
		})
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != len(tests) {
		t.Errorf("directory has %d entries, want %d (temp files left behind?)", len(entries), len(tests))
	}
}

func TestSlotExportOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waveform.png")
	if err := os.WriteFile(path, []byte("stale contents that are longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSlot(Waveform, nil)
	if err := s.Replace(&fakeArtifact{kind: Waveform, payload: "new"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Export(path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "png:new" {
		t.Errorf("file = %q, want png:new", got)
	}
}

func TestSlotExportNoArtifact(t *testing.T) {
	placeholder := &fakeArtifact{kind: Spectrum, payload: "placeholder"}
	s := NewSlot(Spectrum, placeholder)
	path := filepath.Join(t.TempDir(), "fft_spectrum.png")

	err := s.Export(path)
	var noArt *NoArtifactError
	if !errors.As(err, &noArt) {
		t.Fatalf("Export() error = %v, want *NoArtifactError", err)
	}
	if noArt.Kind != Spectrum {
		t.Errorf("Kind = %v, want spectrum", noArt.Kind)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("placeholder was exported")
	}
}

func TestSlotExportErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		artifact *fakeArtifact
		path     string
		target   error
	}{
		{"Missing directory", &fakeArtifact{kind: Waveform}, filepath.Join(dir, "nope", "w.png"), os.ErrNotExist},
		{"Unsupported extension", &fakeArtifact{kind: Waveform}, filepath.Join(dir, "w.bmp"), ErrUnsupportedFormat},
		{"Encoder failure", &fakeArtifact{kind: Waveform, failEnc: true}, filepath.Join(dir, "w.png"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSlot(Waveform, nil)
			if err := s.Replace(tt.artifact); err != nil {
				t.Fatal(err)
			}

			err := s.Export(tt.path)
			var exportErr *ExportError
			if !errors.As(err, &exportErr) {
				t.Fatalf("Export() error = %v, want *ExportError", err)
			}
			if exportErr.Path != tt.path || exportErr.Kind != Waveform {
				t.Errorf("ExportError = %+v", exportErr)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Export() error = %v, want wrapping %v", err, tt.target)
			}

			// The slot still holds its artifact, untouched.
			if got, ok := s.Current(); !ok || got != tt.artifact || tt.artifact.closed {
				t.Error("failed export mutated the slot")
			}
			if _, err := os.Stat(tt.path); !os.IsNotExist(err) {
				t.Errorf("failed export left %s behind", tt.path)
			}
		})
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestSlotClose(t *testing.T) {
	placeholder := &fakeArtifact{kind: Waveform}
	current := &fakeArtifact{kind: Waveform}
	s := NewSlot(Waveform, placeholder)
	if err := s.Replace(current); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !placeholder.closed || !current.closed {
		t.Error("Close() did not release both artifacts")
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		name     string
		want     Kind
		fileName string
	}{
		{"waveform", Waveform, "waveform.png"},
		{"Spectrogram", Spectrogram, "spectrogram.png"},
		{"fft", Spectrum, "fft_spectrum.png"},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v", tt.name, got, err)
		}
		if got.DefaultFileName() != tt.fileName {
			t.Errorf("%v.DefaultFileName() = %q, want %q", got, got.DefaultFileName(), tt.fileName)
		}
	}
	if _, err := ParseKind("histogram"); err == nil {
		t.Error("ParseKind(histogram) should fail")
	}
	if len(Kinds()) != 3 {
		t.Errorf("Kinds() = %v", Kinds())
	}
}
