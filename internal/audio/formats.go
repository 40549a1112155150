// SPDX-License-Identifier: MIT
package audio

import (
	"io"

	goaiff "github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/pkg/errors"
)

var (
	ErrNotWavFile                  = errors.New("not a WAV file")
	ErrNotAiffFile                 = errors.New("not an AIFF file")
	ErrOnlyPCMSupported            = errors.New("only integer PCM WAV is supported")
	ErrUnsupportedBitDepth         = errors.New("unsupported bit depth")
	ErrNoFormatInformation         = errors.New("stream carries no format information")
	wavFormatPCM                   = uint16(1)
	mp3Channels                    = 2 // go-mp3 always emits interleaved stereo
	mp3BytesPerSample              = 2 // ...as 16-bit little-endian
	int16Scale             float32 = 1.0 / 32768.0
)

func readWAV(r io.ReadSeeker) (*pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, errors.Wrapf(ErrOnlyPCMSupported, "format tag %d", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "reading WAV PCM data")
	}
	// WAV stores 8-bit samples unsigned.
	return intBufferToPCM(buf, int(dec.BitDepth), int(dec.BitDepth) == 8)
}

func readAIFF(r io.ReadSeeker) (*pcm, error) {
	dec := goaiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "reading AIFF PCM data")
	}
	return intBufferToPCM(buf, int(dec.BitDepth), false)
}

// intBufferToPCM normalizes go-audio integer samples to [-1, 1).
func intBufferToPCM(buf *goaudio.IntBuffer, bitDepth int, unsigned8 bool) (*pcm, error) {
	if buf == nil || buf.Format == nil {
		return nil, ErrNoFormatInformation
	}

	var full float32
	switch bitDepth {
	case 8:
		full = 128
	case 16:
		full = 32768
	case 24:
		full = 8388608
	case 32:
		full = 2147483648
	default:
		return nil, errors.Wrapf(ErrUnsupportedBitDepth, "%d bits", bitDepth)
	}

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		if unsigned8 {
			v -= 128
		}
		out[i] = float32(v) / full
	}

	return &pcm{
		samples:    out,
		channels:   buf.Format.NumChannels,
		sampleRate: buf.Format.SampleRate,
	}, nil
}

func readMP3(r io.ReadSeeker) (*pcm, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading MP3 header")
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.Wrap(err, "decoding MP3 frames")
	}

	n := len(raw) / mp3BytesPerSample
	out := make([]float32, n)
	for i := range n {
		low := uint16(raw[2*i])
		high := uint16(raw[2*i+1])
		out[i] = float32(int16(low|high<<8)) * int16Scale
	}

	return &pcm{
		samples:    out,
		channels:   mp3Channels,
		sampleRate: dec.SampleRate(),
	}, nil
}

func readVorbis(r io.ReadSeeker) (*pcm, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding Ogg Vorbis stream")
	}
	if format == nil {
		return nil, ErrNoFormatInformation
	}

	return &pcm{
		samples:    samples,
		channels:   format.Channels,
		sampleRate: format.SampleRate,
	}, nil
}
