// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audioscope/internal/analysis"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Analysis.WindowSize != DefaultWindowSize || cfg.Analysis.HopLength != DefaultHopLength {
		t.Errorf("expected STFT defaults, got window=%d hop=%d", cfg.Analysis.WindowSize, cfg.Analysis.HopLength)
	}
	if cfg.Render.DPI != DefaultDPI {
		t.Errorf("expected DPI %d, got %d", DefaultDPI, cfg.Render.DPI)
	}
	if cfg.Decode.SampleRate != DefaultDecodeSampleRate {
		t.Errorf("expected decode rate %d, got %d", DefaultDecodeSampleRate, cfg.Decode.SampleRate)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected unmarshal error, got %v", err)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
log_level: debug
analysis:
  window_size: 1024
  hop_length: 256
  window: hamming
render:
  dpi: 150
  spectrum_max_hz: 8000
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Analysis.WindowSize != 1024 || cfg.Analysis.HopLength != 256 {
		t.Errorf("window/hop = %d/%d, want 1024/256", cfg.Analysis.WindowSize, cfg.Analysis.HopLength)
	}
	if cfg.Analysis.TopDB != DefaultTopDB {
		t.Errorf("unset top_db should keep default, got %g", cfg.Analysis.TopDB)
	}
	if cfg.Render.DPI != 150 || cfg.Render.SpectrumMaxHz != 8000 {
		t.Errorf("render = %+v", cfg.Render)
	}

	stft := cfg.STFT()
	if stft.Window != analysis.Hamming || stft.WindowSize != 1024 {
		t.Errorf("STFT() = %+v", stft)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_RENDER_DPI", "96")
	t.Setenv("ENV_DECODE_SAMPLE_RATE", "0")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "127.0.0.1:7000")

	path := writeTempConfig(t, "render:\n  dpi: 200\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Render.DPI != 96 {
		t.Errorf("env should override file dpi, got %d", cfg.Render.DPI)
	}
	if cfg.Decode.SampleRate != 0 {
		t.Errorf("decode rate = %d, want 0", cfg.Decode.SampleRate)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "127.0.0.1:7000" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"window not power of two", func(c *Config) { c.Analysis.WindowSize = 2000 }, "power of 2, got 2000 (try 2048)"},
		{"window too small", func(c *Config) { c.Analysis.WindowSize = 8 }, "window_size must be in"},
		{"hop zero", func(c *Config) { c.Analysis.HopLength = 0 }, "hop_length"},
		{"hop above window", func(c *Config) { c.Analysis.HopLength = 4096 }, "hop_length"},
		{"top db", func(c *Config) { c.Analysis.TopDB = 0 }, "top_db"},
		{"unknown window", func(c *Config) { c.Analysis.Window = "triangle" }, "analysis.window"},
		{"inverted default range", func(c *Config) { c.Analysis.EndSeconds = 0 }, "default range"},
		{"decode rate", func(c *Config) { c.Decode.SampleRate = 10 }, "decode.sample_rate"},
		{"native decode rate", func(c *Config) { c.Decode.SampleRate = 0 }, ""},
		{"dpi", func(c *Config) { c.Render.DPI = 5000 }, "render.dpi"},
		{"format", func(c *Config) { c.Render.Format = "gif" }, "render.format"},
		{"figure", func(c *Config) { c.Render.SpectrumSize.Height = 0 }, "spectrum_size"},
		{"frames", func(c *Config) { c.Playback.FramesPerBuffer = 0 }, "frames_per_buffer"},
		{"device", func(c *Config) { c.Playback.OutputDevice = -5 }, "output_device"},
		{"udp address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, "missing port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.substr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.substr)
			}
		})
	}
}
