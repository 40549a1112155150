// SPDX-License-Identifier: MIT
package session

import (
	"context"
	"fmt"
	"path/filepath"

	"audioscope/internal/transport"
	"audioscope/internal/view"
)

// ExportResult answers export requests.
type ExportResult struct {
	Paths []string `json:"paths"`
}

// Handler adapts s to remote front ends. Export paths in requests are
// relative to exportDir and may not leave it; an empty path means the view's
// default file name, or exportDir itself for export_all. Requests must not
// run concurrently; the WebSocket transport serializes them.
func Handler(s *Session, exportDir string) transport.RequestHandler {
	if exportDir == "" {
		exportDir = "."
	}

	return func(ctx context.Context, req transport.Request) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch req.Op {
		case transport.OpAnalyze:
			report, err := s.AnalyzeText(string(req.Start), string(req.End))
			if report != nil {
				// A partial failure still carries the report.
				return report, err
			}
			return nil, err

		case transport.OpExport:
			kind, err := view.ParseKind(req.View)
			if err != nil {
				return nil, err
			}
			name := req.Path
			if name == "" {
				name = kind.DefaultFileName()
			}
			path, err := confine(exportDir, name)
			if err != nil {
				return nil, fmt.Errorf("export %s: %w", kind, err)
			}
			if err := s.Export(kind, path); err != nil {
				return nil, err
			}
			return ExportResult{Paths: []string{path}}, nil

		case transport.OpExportAll:
			name := req.Path
			if name == "" {
				name = "."
			}
			dir, err := confine(exportDir, name)
			if err != nil {
				return nil, fmt.Errorf("export_all: %w", err)
			}
			paths, err := s.ExportAll(dir)
			return ExportResult{Paths: paths}, err

		default:
			return nil, fmt.Errorf("unknown op %q", req.Op)
		}
	}
}

// confine joins a client-supplied relative path onto root, rejecting
// absolute paths and any path that climbs out of root.
func confine(root, name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("path %q must be relative to the export directory and stay inside it", name)
	}
	return filepath.Join(root, name), nil
}
