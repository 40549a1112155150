// SPDX-License-Identifier: MIT

// Package transport carries analysis reports out of a session and front-end
// requests into it.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Operations a front end can request.
const (
	OpAnalyze   = "analyze"
	OpExport    = "export"
	OpExportAll = "export_all"
)

// Request is a command from a remote front end.
type Request struct {
	ID    string   `json:"id,omitempty"`
	Op    string   `json:"op"`
	Start TimeText `json:"start,omitempty"` // Analyze: range start, as the user typed it
	End   TimeText `json:"end,omitempty"`   // Analyze: range end
	View  string   `json:"view,omitempty"`  // Export: view name
	Path  string   `json:"path,omitempty"`  // Export: file, ExportAll: directory
}

// Response answers one Request.
type Response struct {
	ID     string `json:"id,omitempty"`
	Op     string `json:"op"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// RequestHandler executes a request and returns its result.
type RequestHandler func(ctx context.Context, req Request) (any, error)

// TimeText is a time bound as entered. It accepts a JSON string or number
// and keeps the text so that parsing, and its errors, stay with the session.
type TimeText string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TimeText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TimeText(s)
		return nil
	}
	*t = TimeText(b)
	return nil
}
