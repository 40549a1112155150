// SPDX-License-Identifier: MIT

// Package render draws the analysis views with gonum/plot and wraps them as
// exportable view artifacts.
package render

import (
	"fmt"
	"image/color"
	"math"

	"audioscope/internal/analysis"
	"audioscope/internal/config"
	"audioscope/internal/view"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// PlaceholderText is shown by a view before its first analysis.
const PlaceholderText = "analysis results will appear here"

// maxWaveformPoints bounds the polyline; longer segments are drawn as a
// min/max envelope.
const maxWaveformPoints = 4096

var lineColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// Size is a figure size in inches.
type Size struct {
	Width  float64
	Height float64
}

// Options controls figure geometry and view policy.
type Options struct {
	DPI             int
	SpectrumMaxHz   float64 // Upper bound of the spectrum view
	WaveformSize    Size
	SpectrogramSize Size
	SpectrumSize    Size
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Render)
}

// OptionsFromConfig converts the render config section.
func OptionsFromConfig(rc config.RenderConfig) Options {
	return Options{
		DPI:             rc.DPI,
		SpectrumMaxHz:   rc.SpectrumMaxHz,
		WaveformSize:    Size(rc.WaveformSize),
		SpectrogramSize: Size(rc.SpectrogramSize),
		SpectrumSize:    Size(rc.SpectrumSize),
	}
}

// Renderer turns analysis results into figures.
type Renderer struct {
	opts Options
}

// New returns a renderer for opts.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts}
}

// Options returns the renderer's settings.
func (r *Renderer) Options() Options { return r.opts }

func (r *Renderer) size(kind view.Kind) Size {
	switch kind {
	case view.Waveform:
		return r.opts.WaveformSize
	case view.Spectrogram:
		return r.opts.SpectrogramSize
	default:
		return r.opts.SpectrumSize
	}
}

// Waveform plots amplitude against absolute time.
func (r *Renderer) Waveform(seg *analysis.Segment) (view.Artifact, error) {
	p := plot.New()
	p.Title.Text = "Waveform"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Amplitude"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(waveformPoints(seg))
	if err != nil {
		return nil, fmt.Errorf("waveform line: %w", err)
	}
	line.LineStyle.Width = vg.Points(0.5)
	line.LineStyle.Color = lineColor
	p.Add(line)

	start := seg.Offset()
	p.X.Min, p.X.Max = start, start+seg.Duration()

	return newFigure(view.Waveform, p, r.size(view.Waveform), r.opts.DPI), nil
}

// waveformPoints returns one point per sample, or a min/max pair per bucket
// when the segment has more than maxWaveformPoints samples.
func waveformPoints(seg *analysis.Segment) plotter.XYs {
	n := len(seg.Samples)
	if n <= maxWaveformPoints {
		pts := make(plotter.XYs, n)
		for i, v := range seg.Samples {
			pts[i] = plotter.XY{X: seg.TimeOf(i), Y: v}
		}
		return pts
	}

	buckets := maxWaveformPoints / 2
	pts := make(plotter.XYs, 0, 2*buckets)
	for b := range buckets {
		lo := b * n / buckets
		hi := (b + 1) * n / buckets
		minV, maxV := math.Inf(1), math.Inf(-1)
		minI, maxI := lo, lo
		for i := lo; i < hi; i++ {
			v := seg.Samples[i]
			if v < minV {
				minV, minI = v, i
			}
			if v > maxV {
				maxV, maxI = v, i
			}
		}
		// Keep the pair in time order so the envelope does not zigzag back.
		if minI > maxI {
			minV, minI, maxV, maxI = maxV, maxI, minV, minI
		}
		pts = append(pts,
			plotter.XY{X: seg.TimeOf(minI), Y: minV},
			plotter.XY{X: seg.TimeOf(maxI), Y: maxV},
		)
	}
	return pts
}

// Spectrogram draws the dB matrix as a heat map over time and frequency.
func (r *Renderer) Spectrogram(s *analysis.Spectrogram) (view.Artifact, error) {
	if s.Bins() < 2 {
		return nil, fmt.Errorf("spectrogram needs at least 2 frequency bins, got %d", s.Bins())
	}

	p := plot.New()
	p.Title.Text = "Spectrogram"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Frequency (Hz)"

	hm := plotter.NewHeatMap(spectrogramGrid{s}, palette.Heat(256, 1))
	hm.Min, hm.Max = -s.TopDB, 0
	hm.Rasterized = true
	p.Add(hm)

	return newFigure(view.Spectrogram, p, r.size(view.Spectrogram), r.opts.DPI), nil
}

// spectrogramGrid adapts a Spectrogram to plotter.GridXYZ.
type spectrogramGrid struct {
	s *analysis.Spectrogram
}

func (g spectrogramGrid) Dims() (c, r int)   { return g.s.Frames(), g.s.Bins() }
func (g spectrogramGrid) Z(c, r int) float64 { return g.s.DB.At(r, c) }
func (g spectrogramGrid) X(c int) float64    { return g.s.TimeOf(c) }
func (g spectrogramGrid) Y(r int) float64    { return g.s.FrequencyOf(r) }

// Spectrum plots the single-sided amplitude spectrum up to SpectrumMaxHz.
func (r *Renderer) Spectrum(s *analysis.Spectrum) (view.Artifact, error) {
	p := plot.New()
	p.Title.Text = "FFT Spectrum"
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = "Magnitude"
	p.Add(plotter.NewGrid())

	band := s.Band(r.opts.SpectrumMaxHz)
	if band.Len() > 0 {
		pts := make(plotter.XYs, band.Len())
		for i := range pts {
			pts[i] = plotter.XY{X: band.Frequencies[i], Y: band.Magnitudes[i]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("spectrum line: %w", err)
		}
		line.LineStyle.Width = vg.Points(0.75)
		line.LineStyle.Color = lineColor
		p.Add(line)
	} else {
		p.Y.Min, p.Y.Max = 0, 1
	}

	p.X.Min, p.X.Max = 0, r.opts.SpectrumMaxHz

	return newFigure(view.Spectrum, p, r.size(view.Spectrum), r.opts.DPI), nil
}

// Placeholder returns the figure a view shows before its first analysis.
func (r *Renderer) Placeholder(kind view.Kind) (view.Artifact, error) {
	p := plot.New()
	p.HideAxes()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: 0.5, Y: 0.5}},
		Labels: []string{PlaceholderText},
	})
	if err != nil {
		return nil, fmt.Errorf("placeholder label: %w", err)
	}
	labels.TextStyle[0].XAlign = text.XCenter
	labels.TextStyle[0].YAlign = text.YCenter
	labels.TextStyle[0].Color = color.Gray{Y: 128}
	p.Add(labels)

	return newFigure(kind, p, r.size(kind), r.opts.DPI), nil
}
