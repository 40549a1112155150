// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits for the analysis pipeline. The spectrogram values follow
// the conventional STFT setup (2048-point window, 75% overlap, 80 dB range).
const (
	// Analysis defaults
	DefaultWindowSize = 2048   // STFT window length in samples
	DefaultHopLength  = 512    // STFT hop in samples (75% overlap)
	DefaultTopDB      = 80.0   // Spectrogram dynamic range below the peak
	DefaultWindow     = "Hann" // STFT analysis window
	DefaultCenter     = true   // Zero-pad half a window on each side
	DefaultParallel   = false  // Run the three transforms serially

	// Range defaults used by the front ends
	DefaultStartSeconds = 0.0
	DefaultEndSeconds   = 5.0

	// Decoder defaults
	DefaultDecodeSampleRate = 22050 // Resample target, 0 keeps the file's rate

	// Render defaults
	DefaultDPI           = 300    // Export resolution
	DefaultFormat        = "png"  // Export format when a path has no extension
	DefaultSpectrumMaxHz = 5000.0 // Display cap of the spectrum view

	// Playback defaults
	DefaultOutputDevice    = MinDeviceID
	DefaultFramesPerBuffer = 512

	// Transport defaults
	DefaultWSAddress       = "127.0.0.1:8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPSendInterval = 0 * time.Millisecond

	// Hardware and processing limits
	MinDeviceID      = -1     // -1 represents system default device
	MinSampleRate    = 1000   // Lowest resample target (Hz)
	MaxSampleRate    = 192000 // Highest resample target (Hz)
	MinWindowSize    = 16
	MaxWindowSize    = 65536
	MinDPI           = 36
	MaxDPI           = 1200
	MaxBufferFrames  = 8192
	MaxFigureInches  = 40.0
	DefaultLogLevel  = "info"
	DefaultOutputDir = "."
)

// Figure sizes in inches, one per view.
var (
	DefaultWaveformSize    = FigureSize{Width: 10, Height: 2}
	DefaultSpectrogramSize = FigureSize{Width: 5, Height: 4}
	DefaultSpectrumSize    = FigureSize{Width: 5, Height: 4}
)
