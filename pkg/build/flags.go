// SPDX-License-Identifier: MIT
//
// Package build exposes the build metadata embedded at link time, for example:
//
//	go build -ldflags "-X audioscope/pkg/build.buildVersion=0.2.0 \
//	    -X audioscope/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds carry no ldflags; Initialize then fills the gaps from the
// module information the Go toolchain records in every binary.
package build

import (
	"fmt"
	"runtime/debug"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Version     string
	Commit      string
	Time        string
}

// String formats the info the way the CLI prints it for --version.
func (i *Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildVersion string
	buildCommit  string
	buildTime    string
)

var info = &Info{
	Name:        "audioscope",
	Description: "Analyze a segment of an audio recording as waveform, spectrogram and spectrum",
	Version:     "dev",
	Commit:      "unknown",
	Time:        "unknown",
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize merges ldflags values into the build info. Missing values fall
// back to the VCS settings recorded by the toolchain. It returns an error
// only when an ldflags value was set but is malformed (a name with spaces).
func Initialize() error {
	if buildName != "" {
		for _, r := range buildName {
			if r == ' ' || r == '\t' {
				return fmt.Errorf("build name %q must not contain whitespace", buildName)
			}
		}
		info.Name = buildName
	}
	if buildVersion != "" {
		info.Version = buildVersion
	}
	if buildCommit != "" {
		info.Commit = buildCommit
	}
	if buildTime != "" {
		info.Time = buildTime
	}

	bi, ok := readBuildInfo()
	if !ok {
		return nil
	}
	if buildVersion == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if buildCommit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if buildTime == "" {
				info.Time = s.Value
			}
		}
	}
	return nil
}

// Get returns the current build information.
func Get() *Info {
	return info
}
