// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"audioscope/internal/analysis"
	"audioscope/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`      // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`  // Logging level ("debug", "info", "warn", "error").
	OutputDir string          `yaml:"output_dir"` // Directory for exported images.
	Analysis  AnalysisConfig  `yaml:"analysis"`   // Segment selection and transform settings.
	Decode    DecodeConfig    `yaml:"decode"`     // Audio decoder settings.
	Render    RenderConfig    `yaml:"render"`     // Plot rendering and export settings.
	Playback  PlaybackConfig  `yaml:"playback"`   // Segment playback settings.
	Transport TransportConfig `yaml:"transport"`  // WebSocket and UDP front ends.
}

// AnalysisConfig holds the spectrogram parameters and range defaults.
type AnalysisConfig struct {
	WindowSize   int     `yaml:"window_size"`   // STFT window length in samples (power of 2).
	HopLength    int     `yaml:"hop_length"`    // STFT hop in samples.
	TopDB        float64 `yaml:"top_db"`        // Spectrogram floor below the peak, in dB.
	Window       string  `yaml:"window"`        // Window function name ("Hann", "Hamming", ...).
	Center       bool    `yaml:"center"`        // Center frames by zero-padding half a window.
	Parallel     bool    `yaml:"parallel"`      // Compute the three views concurrently.
	StartSeconds float64 `yaml:"start_seconds"` // Default range start for front ends.
	EndSeconds   float64 `yaml:"end_seconds"`   // Default range end for front ends.
}

// DecodeConfig holds decoder settings.
type DecodeConfig struct {
	SampleRate int `yaml:"sample_rate"` // Resample target in Hz, 0 keeps the native rate.
}

// FigureSize is a figure's size in inches.
type FigureSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// RenderConfig holds renderer settings.
type RenderConfig struct {
	DPI             int        `yaml:"dpi"`              // Raster export resolution.
	Format          string     `yaml:"format"`           // Default export format.
	SpectrumMaxHz   float64    `yaml:"spectrum_max_hz"`  // Upper frequency shown in the spectrum view.
	WaveformSize    FigureSize `yaml:"waveform_size"`    // Waveform figure size.
	SpectrogramSize FigureSize `yaml:"spectrogram_size"` // Spectrogram figure size.
	SpectrumSize    FigureSize `yaml:"spectrum_size"`    // Spectrum figure size.
}

// PlaybackConfig holds PortAudio playback settings.
type PlaybackConfig struct {
	OutputDevice    int  `yaml:"output_device"`     // PortAudio device index (-1 for default).
	FramesPerBuffer int  `yaml:"frames_per_buffer"` // Frames per callback.
	LowLatency      bool `yaml:"low_latency"`       // Request the device's low latency setting.
}

// TransportConfig holds settings related to publishing analysis results.
type TransportConfig struct {
	WSAddress        string        `yaml:"ws_address"`         // Listen address of the WebSocket front end.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Publish each spectrum over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Minimum spacing between UDP packets.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  DefaultLogLevel,
		OutputDir: DefaultOutputDir,
		Analysis: AnalysisConfig{
			WindowSize:   DefaultWindowSize,
			HopLength:    DefaultHopLength,
			TopDB:        DefaultTopDB,
			Window:       DefaultWindow,
			Center:       DefaultCenter,
			Parallel:     DefaultParallel,
			StartSeconds: DefaultStartSeconds,
			EndSeconds:   DefaultEndSeconds,
		},
		Decode: DecodeConfig{
			SampleRate: DefaultDecodeSampleRate,
		},
		Render: RenderConfig{
			DPI:             DefaultDPI,
			Format:          DefaultFormat,
			SpectrumMaxHz:   DefaultSpectrumMaxHz,
			WaveformSize:    DefaultWaveformSize,
			SpectrogramSize: DefaultSpectrogramSize,
			SpectrumSize:    DefaultSpectrumSize,
		},
		Playback: PlaybackConfig{
			OutputDevice:    DefaultOutputDevice,
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
		Transport: TransportConfig{
			WSAddress:        DefaultWSAddress,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("audioscope.yaml", "config.yaml"). If no file is found,
// it uses built-in defaults. After loading defaults or from file, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"audioscope.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment overrides apply after the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and returns the first violated constraint.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.WindowSize < MinWindowSize || a.WindowSize > MaxWindowSize {
		return fmt.Errorf("analysis.window_size must be in [%d, %d], got %d", MinWindowSize, MaxWindowSize, a.WindowSize)
	}
	if !bitint.IsPowerOfTwo(a.WindowSize) {
		return fmt.Errorf("analysis.window_size must be a power of 2, got %d (try %d)", a.WindowSize, bitint.NextPowerOfTwo(a.WindowSize))
	}
	if a.HopLength <= 0 || a.HopLength > a.WindowSize {
		return fmt.Errorf("analysis.hop_length must be in (0, %d], got %d", a.WindowSize, a.HopLength)
	}
	if a.TopDB <= 0 {
		return fmt.Errorf("analysis.top_db must be positive, got %g", a.TopDB)
	}
	if _, err := analysis.ParseWindowFunc(a.Window); err != nil {
		return fmt.Errorf("analysis.window: %w", err)
	}
	if a.StartSeconds < 0 || a.EndSeconds <= a.StartSeconds {
		return fmt.Errorf("analysis default range must satisfy 0 ≤ start < end, got %g..%g", a.StartSeconds, a.EndSeconds)
	}

	if sr := c.Decode.SampleRate; sr != 0 && (sr < MinSampleRate || sr > MaxSampleRate) {
		return fmt.Errorf("decode.sample_rate must be 0 or in [%d, %d], got %d", MinSampleRate, MaxSampleRate, sr)
	}

	r := c.Render
	if r.DPI < MinDPI || r.DPI > MaxDPI {
		return fmt.Errorf("render.dpi must be in [%d, %d], got %d", MinDPI, MaxDPI, r.DPI)
	}
	switch strings.ToLower(r.Format) {
	case "png", "jpg", "jpeg", "tif", "tiff", "svg":
	default:
		return fmt.Errorf("render.format %q is not supported", r.Format)
	}
	if r.SpectrumMaxHz <= 0 {
		return fmt.Errorf("render.spectrum_max_hz must be positive, got %g", r.SpectrumMaxHz)
	}
	for name, size := range map[string]FigureSize{
		"waveform_size":    r.WaveformSize,
		"spectrogram_size": r.SpectrogramSize,
		"spectrum_size":    r.SpectrumSize,
	} {
		if size.Width <= 0 || size.Height <= 0 || size.Width > MaxFigureInches || size.Height > MaxFigureInches {
			return fmt.Errorf("render.%s must be within (0, %g] inches, got %gx%g", name, MaxFigureInches, size.Width, size.Height)
		}
	}

	if c.Playback.OutputDevice < MinDeviceID {
		return fmt.Errorf("playback.output_device must be >= %d, got %d", MinDeviceID, c.Playback.OutputDevice)
	}
	if f := c.Playback.FramesPerBuffer; f <= 0 || f > MaxBufferFrames {
		return fmt.Errorf("playback.frames_per_buffer must be in (0, %d], got %d", MaxBufferFrames, f)
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval < 0 {
			return fmt.Errorf("transport.udp_send_interval must not be negative")
		}
	}

	return nil
}

// STFT builds the spectrogram transform described by the analysis section.
// Validate must have passed, so the window name is known.
func (c *Config) STFT() analysis.STFT {
	win, _ := analysis.ParseWindowFunc(c.Analysis.Window)
	return analysis.STFT{
		WindowSize: c.Analysis.WindowSize,
		HopLength:  c.Analysis.HopLength,
		TopDB:      c.Analysis.TopDB,
		Window:     win,
		Center:     c.Analysis.Center,
	}
}

// applyEnvOverrides lets ENV_* variables override file values.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	// ENV_RENDER_DPI
	if val, ok := os.LookupEnv("ENV_RENDER_DPI"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Render.DPI = iVal
		}
	}
	// ENV_DECODE_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_DECODE_SAMPLE_RATE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Decode.SampleRate = iVal
		}
	}

	// ENV_UDP_{...} and ENV_WS_{...} are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WSAddress = val
	}
}
