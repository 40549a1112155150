// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applog "audioscope/internal/log"

	"github.com/gordonklaus/portaudio"
)

// ErrPlaybackActive is returned when Play is called while a stream runs.
var ErrPlaybackActive = errors.New("playback already in progress")

// PlayerConfig selects the output device and stream shape.
type PlayerConfig struct {
	DeviceID        int  // DefaultDeviceID selects the host default
	FramesPerBuffer int  // Frames handed to each callback
	LowLatency      bool // Use the device's low output latency
}

// Player plays mono sample ranges through a PortAudio output stream. The
// caller owns Initialize/Terminate.
type Player struct {
	cfg PlayerConfig

	mtx    sync.Mutex
	active bool

	// Seam for tests; defaults to a real PortAudio stream.
	openStream func(params portaudio.StreamParameters, cb func(out []float32)) (stream, error)
}

// stream is the subset of *portaudio.Stream the player drives.
type stream interface {
	Start() error
	Stop() error
	Close() error
}

// NewPlayer returns a player for cfg.
func NewPlayer(cfg PlayerConfig) *Player {
	return &Player{
		cfg: cfg,
		openStream: func(params portaudio.StreamParameters, cb func(out []float32)) (stream, error) {
			return portaudio.OpenStream(params, cb)
		},
	}
}

// Play blocks until samples have been played, ctx is cancelled or the
// stream fails. Samples are copied out of by the callback, never modified.
func (p *Player) Play(ctx context.Context, samples []float64, sampleRate int) error {
	if len(samples) == 0 {
		return ErrEmptyBuffer
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidSampleRate, sampleRate)
	}

	p.mtx.Lock()
	if p.active {
		p.mtx.Unlock()
		return ErrPlaybackActive
	}
	p.active = true
	p.mtx.Unlock()
	defer func() {
		p.mtx.Lock()
		p.active = false
		p.mtx.Unlock()
	}()

	device, err := OutputDevice(p.cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to resolve output device: %w", err)
	}

	latency := device.DefaultHighOutputLatency
	if p.cfg.LowLatency {
		latency = device.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  latency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: p.cfg.FramesPerBuffer,
	}

	cur := newCursor(samples)
	s, err := p.openStream(params, cur.fill)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	applog.Infof("Player: playing %d samples @ %d Hz on %s", len(samples), sampleRate, device.Name)

	var playErr error
	select {
	case <-cur.done:
		// Let the last buffer drain before stopping.
		time.Sleep(latency)
	case <-ctx.Done():
		playErr = ctx.Err()
	}

	if err := s.Stop(); err != nil && playErr == nil {
		playErr = fmt.Errorf("failed to stop output stream: %w", err)
	}
	return playErr
}

// cursor walks a sample slice from the audio callback.
type cursor struct {
	samples []float64
	pos     int
	done    chan struct{}
	once    sync.Once
}

func newCursor(samples []float64) *cursor {
	return &cursor{samples: samples, done: make(chan struct{})}
}

// fill copies the next len(out) samples, pads with silence after the end
// and signals done once everything has been handed out.
func (c *cursor) fill(out []float32) {
	n := copyFloat32(out, c.samples[c.pos:])
	c.pos += n
	clear(out[n:])

	if c.pos >= len(c.samples) {
		c.once.Do(func() { close(c.done) })
	}
}

func copyFloat32(dst []float32, src []float64) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float32(src[i])
	}
	return n
}
