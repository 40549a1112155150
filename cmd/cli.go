// SPDX-License-Identifier: MIT

// Package cmd wires configuration, the analysis session and the front ends
// into the audioscope command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"audioscope/internal/analysis"
	"audioscope/internal/audio"
	"audioscope/internal/config"
	applog "audioscope/internal/log"
	"audioscope/internal/render"
	"audioscope/internal/session"
	"audioscope/internal/transport"
	"audioscope/internal/transport/udp"
	"audioscope/internal/tui"
	"audioscope/internal/view"
	"audioscope/pkg/build"

	"github.com/spf13/cobra"
)

// options collects the flags shared by every subcommand. Flags left at
// their zero value defer to the loaded configuration.
type options struct {
	ConfigPath string
	Verbose    bool

	SampleRate int
	WindowSize int
	HopLength  int
	Window     string
	Parallel   bool
	DPI        int

	Start     float64
	End       float64
	OutputDir string
	Format    string
	View      string
}

// app is the state one invocation builds in PersistentPreRunE.
type app struct {
	opts   options
	cfg    *config.Config
	stdout io.Writer
}

// NewRootCommand builds the command tree. Output meant for the user goes to
// stdout; logs go to the applog writer.
func NewRootCommand(stdout io.Writer) *cobra.Command {
	buildInfo := build.Get()
	a := &app{stdout: stdout}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.opts.ConfigPath, "config", "",
		"Path to a YAML config file (default: ./audioscope.yaml or ./config.yaml)")
	pf.BoolVarP(&a.opts.Verbose, "verbose", "v", false,
		"Show verbose output")

	// Analysis overrides
	pf.IntVarP(&a.opts.SampleRate, "sample-rate", "s", config.DefaultDecodeSampleRate,
		"Resample decoded audio to this rate in Hz (0 keeps the file's rate)")
	pf.IntVar(&a.opts.WindowSize, "window-size", config.DefaultWindowSize,
		"Spectrogram window length in samples (power of 2)")
	pf.IntVar(&a.opts.HopLength, "hop-length", config.DefaultHopLength,
		"Spectrogram hop in samples")
	pf.StringVar(&a.opts.Window, "window", config.DefaultWindow,
		"Spectrogram window function")
	pf.BoolVarP(&a.opts.Parallel, "parallel", "p", config.DefaultParallel,
		"Compute the three views concurrently")
	pf.IntVar(&a.opts.DPI, "dpi", config.DefaultDPI,
		"Raster export resolution")

	rootCmd.AddCommand(
		a.analyzeCommand(),
		a.tuiCommand(),
		a.serveCommand(),
		a.playCommand(),
		a.devicesCommand(),
	)
	return rootCmd
}

// Execute runs the command line in args.
func Execute(args []string) error {
	rootCmd := NewRootCommand(os.Stdout)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func rangeFlags(cmd *cobra.Command, o *options) {
	cmd.Flags().Float64Var(&o.Start, "start", config.DefaultStartSeconds, "Range start in seconds")
	cmd.Flags().Float64Var(&o.End, "end", config.DefaultEndSeconds, "Range end in seconds")
}

func exportFlags(cmd *cobra.Command, o *options) {
	cmd.Flags().StringVarP(&o.OutputDir, "out", "o", "", "Export directory (default: output_dir from config)")
	cmd.Flags().StringVarP(&o.Format, "format", "f", "", "Export image format: png, jpg, tiff or svg (default: render.format from config)")
}

// loadConfig reads the config file and applies every flag the user set.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.opts.ConfigPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") && a.opts.Verbose {
		cfg.Debug = true
	}
	if flags.Changed("sample-rate") {
		cfg.Decode.SampleRate = a.opts.SampleRate
	}
	if flags.Changed("window-size") {
		cfg.Analysis.WindowSize = a.opts.WindowSize
	}
	if flags.Changed("hop-length") {
		cfg.Analysis.HopLength = a.opts.HopLength
	}
	if flags.Changed("window") {
		cfg.Analysis.Window = a.opts.Window
	}
	if flags.Changed("parallel") {
		cfg.Analysis.Parallel = a.opts.Parallel
	}
	if flags.Changed("dpi") {
		cfg.Render.DPI = a.opts.DPI
	}
	if flags.Changed("start") {
		cfg.Analysis.StartSeconds = a.opts.Start
	}
	if flags.Changed("end") {
		cfg.Analysis.EndSeconds = a.opts.End
	}
	if a.opts.OutputDir != "" {
		cfg.OutputDir = a.opts.OutputDir
	}
	if a.opts.Format != "" {
		cfg.Render.Format = strings.ToLower(strings.TrimPrefix(a.opts.Format, "."))
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	applog.Configure(cfg.LogLevel, cfg.Debug)
	a.cfg = cfg
	return nil
}

// openSession builds a session from the configuration and opens path.
func (a *app) openSession(path string) (*session.Session, error) {
	decoder := audio.NewFileDecoder(a.cfg.Decode.SampleRate)
	renderer := render.New(render.OptionsFromConfig(a.cfg.Render))
	sess, err := session.New(decoder, renderer, session.Options{
		STFT:     a.cfg.STFT(),
		Parallel: a.cfg.Analysis.Parallel,
	})
	if err != nil {
		return nil, err
	}
	if err := sess.OpenFile(path); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

func (a *app) timeRange() analysis.TimeRange {
	return analysis.TimeRange{Start: a.cfg.Analysis.StartSeconds, End: a.cfg.Analysis.EndSeconds}
}

// exportPath names kind's file in the output directory with the configured
// format's extension.
func (a *app) exportPath(kind view.Kind) string {
	name := strings.TrimSuffix(kind.DefaultFileName(), filepath.Ext(kind.DefaultFileName()))
	return filepath.Join(a.cfg.OutputDir, name+"."+a.cfg.Render.Format)
}

func (a *app) analyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a time range and export waveform, spectrogram and spectrum images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			kinds := view.Kinds()
			if a.opts.View != "" {
				kind, err := view.ParseKind(a.opts.View)
				if err != nil {
					return err
				}
				kinds = []view.Kind{kind}
			}

			report, analyzeErr := sess.Analyze(a.timeRange())
			if report == nil {
				return analyzeErr
			}
			fmt.Fprintf(a.stdout, "%s: %s\n", filepath.Base(args[0]), report)

			if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			// Views that failed keep their placeholder and are not exported.
			failed := make(map[string]bool)
			for _, name := range report.Failed() {
				failed[name] = true
			}
			var errs []error
			for _, kind := range kinds {
				if failed[kind.String()] {
					continue
				}
				path := a.exportPath(kind)
				if err := sess.Export(kind, path); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(a.stdout, "saved %s\n", path)
			}
			return errors.Join(append([]error{analyzeErr}, errs...)...)
		},
	}
	rangeFlags(cmd, &a.opts)
	exportFlags(cmd, &a.opts)
	cmd.Flags().StringVar(&a.opts.View, "view", "", "Export only this view: waveform, spectrogram or spectrum")
	return cmd
}

func (a *app) tuiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui <file>",
		Short: "Analyze a file interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			// Log lines would tear the alternate screen.
			applog.SetOutput(io.Discard)
			defer applog.SetOutput(os.Stderr)

			return tui.Run(sess, tui.Options{
				Start:     a.cfg.Analysis.StartSeconds,
				End:       a.cfg.Analysis.EndSeconds,
				OutputDir: a.cfg.OutputDir,
				Format:    a.cfg.Render.Format,
			})
		},
	}
	rangeFlags(cmd, &a.opts)
	exportFlags(cmd, &a.opts)
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Serve analyze and export requests over WebSocket, publishing reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, sess)
		},
	}
	cmd.Flags().StringVarP(&a.opts.OutputDir, "out", "o", "",
		"Directory remote export requests write into; request paths may not leave it (default: output_dir from config)")
	return cmd
}

// serve attaches the configured transports to sess and blocks until ctx ends.
func (a *app) serve(ctx context.Context, sess *session.Session) error {
	tc := a.cfg.Transport

	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if a.cfg.Debug {
		sess.Attach(transport.NewLoggingTransport())
	}
	if tc.UDPEnabled {
		sender, err := udp.NewSender(tc.UDPTargetAddress)
		if err != nil {
			return err
		}
		pub, err := udp.NewPublisher(sender, tc.UDPSendInterval)
		if err != nil {
			sender.Close()
			return err
		}
		sess.Attach(pub)
	}

	ws := transport.NewWebSocketTransport(tc.WSAddress, session.Handler(sess, a.cfg.OutputDir))
	if err := ws.Start(); err != nil {
		ws.Close()
		return err
	}
	sess.Attach(ws)

	fmt.Fprintf(a.stdout, "serving %s (%.2fs) on ws://%s/ws, exporting into %s\n",
		filepath.Base(sess.Path()), sess.Duration(), ws.Addr(), a.cfg.OutputDir)
	<-ctx.Done()
	applog.Infof("Serve: shutting down")
	return nil
}

func (a *app) playCommand() *cobra.Command {
	var device int
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play a time range through an output device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("device") {
				a.cfg.Playback.OutputDevice = device
			}

			sess, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			seg, err := sess.Segment(a.timeRange())
			if err != nil {
				return err
			}

			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			player := audio.NewPlayer(audio.PlayerConfig{
				DeviceID:        a.cfg.Playback.OutputDevice,
				FramesPerBuffer: a.cfg.Playback.FramesPerBuffer,
				LowLatency:      a.cfg.Playback.LowLatency,
			})
			fmt.Fprintf(a.stdout, "playing %s %s-%ss\n", filepath.Base(args[0]),
				strconv.FormatFloat(a.cfg.Analysis.StartSeconds, 'f', -1, 64),
				strconv.FormatFloat(a.cfg.Analysis.EndSeconds, 'f', -1, 64))
			if err := player.Play(ctx, seg.Samples, seg.SampleRate); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	rangeFlags(cmd, &a.opts)
	cmd.Flags().IntVarP(&device, "device", "d", config.DefaultOutputDevice,
		"Output device ID. Use the 'devices' command to see available devices.")
	return cmd
}

func (a *app) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()
			return audio.ListDevices(a.stdout)
		},
	}
}
