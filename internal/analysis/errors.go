// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNilBuffer is returned when Select is given no buffer.
	ErrNilBuffer = errors.New("no audio buffer to select from")
	// ErrInvalidTransform reports an unusable STFT configuration.
	ErrInvalidTransform = errors.New("invalid transform configuration")
)

// InvalidInputError reports a time bound that is not a finite number.
type InvalidInputError struct {
	Field string // "start" or "end"
	Value string // Text as entered
	Err   error  // Parse failure, nil for NaN/Inf
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s time %q: must be a finite number of seconds", e.Field, e.Value)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// InvalidRangeError reports a time range outside 0 ≤ start < end ≤ duration.
type InvalidRangeError struct {
	Start, End, Duration float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("range must satisfy 0 ≤ start < end ≤ duration, got start=%s, end=%s, duration=%s",
		formatSeconds(e.Start), formatSeconds(e.End), formatSeconds(e.Duration))
}

// formatSeconds prints the shortest exact form, always with a decimal point.
func formatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
