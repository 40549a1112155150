// SPDX-License-Identifier: MIT

// Package tui is the interactive terminal front end: two range inputs, a
// report pane, and export shortcuts for the three views.
package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"audioscope/internal/session"
	"audioscope/internal/view"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)
)

type keyMap struct {
	Quit      key.Binding
	Next      key.Binding
	Analyze   key.Binding
	ExportAll key.Binding
	Export    map[view.Kind]key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("esc", "ctrl+c")),
	Next:      key.NewBinding(key.WithKeys("tab", "shift+tab", "up", "down")),
	Analyze:   key.NewBinding(key.WithKeys("enter")),
	ExportAll: key.NewBinding(key.WithKeys("ctrl+e")),
	Export: map[view.Kind]key.Binding{
		view.Waveform:    key.NewBinding(key.WithKeys("ctrl+w")),
		view.Spectrogram: key.NewBinding(key.WithKeys("ctrl+g")),
		view.Spectrum:    key.NewBinding(key.WithKeys("ctrl+f")),
	},
}

const (
	startInput = iota
	endInput
)

// Options configures the analyzer screen.
type Options struct {
	Start     float64 // Prefilled range start, seconds
	End       float64 // Prefilled range end, seconds
	OutputDir string  // Export directory
	Format    string  // Export image format
}

// AnalyzerModel is the Bubble Tea model of the analyzer screen.
type AnalyzerModel struct {
	sess   *session.Session
	opts   Options
	inputs []textinput.Model
	focus  int

	busy   bool
	report *session.Report
	status string
	err    error
}

type analyzedMsg struct {
	report *session.Report
	err    error
}

type exportedMsg struct {
	paths []string
	err   error
}

// NewAnalyzerModel returns a model over an already opened session.
func NewAnalyzerModel(sess *session.Session, opts Options) AnalyzerModel {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Format == "" {
		opts.Format = "png"
	}

	m := AnalyzerModel{sess: sess, opts: opts}
	for i, v := range []float64{opts.Start, opts.End} {
		in := textinput.New()
		in.CharLimit = 16
		in.Width = 10
		in.Prompt = ""
		in.SetValue(formatSeconds(v))
		if i == startInput {
			in.Focus()
		}
		m.inputs = append(m.inputs, in)
	}
	return m
}

// formatSeconds prints v exactly, keeping a ".0" on whole numbers so the
// field reads as seconds.
func formatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Init initializes the Bubble Tea model
func (m AnalyzerModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input and updates the model
func (m AnalyzerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case analyzedMsg:
		m.busy = false
		m.err = msg.err
		if msg.report != nil {
			m.report = msg.report
		}
		m.status = ""
		if msg.err == nil {
			m.status = "Analysis complete."
		}
		return m, nil

	case exportedMsg:
		m.busy = false
		m.err = msg.err
		m.status = ""
		if len(msg.paths) > 0 {
			m.status = "Saved " + strings.Join(msg.paths, ", ")
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Next):
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			return m, m.inputs[m.focus].Focus()

		case key.Matches(msg, keys.Analyze):
			m.busy = true
			m.status = "Analyzing..."
			return m, m.analyze()

		case key.Matches(msg, keys.ExportAll):
			m.busy = true
			return m, m.exportAll()
		}
		for _, kind := range view.Kinds() {
			if key.Matches(msg, keys.Export[kind]) {
				m.busy = true
				return m, m.export(kind)
			}
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// analyze runs off the UI goroutine; busy keeps a second one from starting.
func (m AnalyzerModel) analyze() tea.Cmd {
	sess := m.sess
	start, end := m.inputs[startInput].Value(), m.inputs[endInput].Value()
	return func() tea.Msg {
		report, err := sess.AnalyzeText(start, end)
		return analyzedMsg{report: report, err: err}
	}
}

func (m AnalyzerModel) export(kind view.Kind) tea.Cmd {
	sess := m.sess
	path := m.exportPath(kind)
	return func() tea.Msg {
		if err := sess.Export(kind, path); err != nil {
			return exportedMsg{err: err}
		}
		return exportedMsg{paths: []string{path}}
	}
}

func (m AnalyzerModel) exportAll() tea.Cmd {
	sess := m.sess
	paths := make(map[view.Kind]string, 3)
	for _, kind := range view.Kinds() {
		paths[kind] = m.exportPath(kind)
	}
	return func() tea.Msg {
		var written []string
		var errs []error
		for _, kind := range view.Kinds() {
			if err := sess.Export(kind, paths[kind]); err != nil {
				errs = append(errs, err)
				continue
			}
			written = append(written, paths[kind])
		}
		return exportedMsg{paths: written, err: errors.Join(errs...)}
	}
}

// exportPath is the view's default file name in the output directory, with
// the configured format's extension.
func (m AnalyzerModel) exportPath(kind view.Kind) string {
	name := strings.TrimSuffix(kind.DefaultFileName(), filepath.Ext(kind.DefaultFileName()))
	return filepath.Join(m.opts.OutputDir, name+"."+m.opts.Format)
}

// View renders the UI
func (m AnalyzerModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Audio Segment Analyzer"))
	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("File: %s (%.2fs)", filepath.Base(m.sess.Path()), m.sess.Duration())))
	sb.WriteString("\n\n")

	for i, label := range []string{"Start (s)", "End (s)  "} {
		line := fmt.Sprintf("%s %s", label, m.inputs[i].View())
		if i == m.focus {
			line = highlightStyle.Render("▶ ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")

	if m.report != nil {
		sb.WriteString(m.renderReport())
		sb.WriteString("\n")
	} else {
		sb.WriteString(infoStyle.Render("Enter a time range and press Enter to analyze.") + "\n\n")
	}

	if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n\n")
	} else if m.status != "" {
		sb.WriteString(highlightStyle.Render(m.status) + "\n\n")
	}

	sb.WriteString(infoStyle.Render("Tab: Switch field • Enter: Analyze • ^W/^G/^F: Export waveform/spectrogram/spectrum • ^E: Export all • Esc: Quit"))
	return sb.String()
}

func (m AnalyzerModel) renderReport() string {
	r := m.report
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Segment:   %.3fs - %.3fs (%d samples @ %d Hz)\n", r.Start, r.End, r.EndSample-r.StartSample, r.SampleRate))
	sb.WriteString(fmt.Sprintf("Levels:    peak %.3f, rms %.3f\n", r.Peak, r.RMS))
	sb.WriteString(fmt.Sprintf("Spectrum:  dominant %.1f Hz (magnitude %.3f)\n", r.PeakFrequency, r.PeakMagnitude))
	sb.WriteString(fmt.Sprintf("Spectrogram: %d bins x %d frames\n", r.Bins, r.Frames))
	for _, v := range r.Views {
		state := highlightStyle.Render("ok")
		if !v.OK {
			state = errorStyle.Render("failed: " + v.Error)
		}
		sb.WriteString(fmt.Sprintf("  %-12s %s\n", v.View, state))
	}
	return sb.String()
}

// Run launches the analyzer TUI and blocks until the user quits.
func Run(sess *session.Session, opts Options) error {
	p := tea.NewProgram(
		NewAnalyzerModel(sess, opts),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
