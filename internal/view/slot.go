// SPDX-License-Identifier: MIT
package view

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	applog "audioscope/internal/log"
)

// Slot exclusively owns the current artifact of one view.
type Slot struct {
	kind        Kind
	placeholder Artifact
	current     Artifact
	mtx         sync.Mutex
}

// NewSlot returns an empty slot that displays placeholder. The placeholder
// may be nil.
func NewSlot(kind Kind, placeholder Artifact) *Slot {
	return &Slot{kind: kind, placeholder: placeholder}
}

// Kind returns the slot's view.
func (s *Slot) Kind() Kind { return s.kind }

// Replace makes a the current artifact and closes the previous one. An
// artifact of another kind is rejected and the slot is left as it was.
func (s *Slot) Replace(a Artifact) error {
	if a == nil {
		return fmt.Errorf("%s slot: nil artifact", s.kind)
	}
	if a.Kind() != s.kind {
		return fmt.Errorf("%s slot: cannot hold a %s artifact", s.kind, a.Kind())
	}

	s.mtx.Lock()
	prev := s.current
	s.current = a
	s.mtx.Unlock()

	if prev != nil && prev != a {
		if err := prev.Close(); err != nil {
			applog.Warnf("View: closing previous %s artifact: %v", s.kind, err)
		}
	}
	return nil
}

// Current returns the analysis artifact, if any.
func (s *Slot) Current() (Artifact, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.current, s.current != nil
}

// Display returns what the view should show: the current artifact, or the
// placeholder before the first analysis.
func (s *Slot) Display() Artifact {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.current != nil {
		return s.current
	}
	return s.placeholder
}

// Export writes the current artifact to path, silently replacing an
// existing file. The image is written to a temporary file next to path and
// renamed into place, so a failed export leaves neither a partial file nor a
// changed slot. Errors are *NoArtifactError or *ExportError.
func (s *Slot) Export(path string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.current == nil {
		return &NoArtifactError{Kind: s.kind}
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return &ExportError{Kind: s.kind, Path: path, Err: err}
	}

	if err := writeAtomic(path, func(w *bufio.Writer) error {
		return s.current.Encode(w, format)
	}); err != nil {
		return &ExportError{Kind: s.kind, Path: path, Err: err}
	}

	applog.Infof("View: exported %s view to %s", s.kind, path)
	return nil
}

// Close releases the current artifact and the placeholder.
func (s *Slot) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var firstErr error
	for _, a := range []Artifact{s.current, s.placeholder} {
		if a == nil {
			continue
		}
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.current, s.placeholder = nil, nil
	return firstErr
}

func writeAtomic(path string, encode func(w *bufio.Writer) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = encode(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
