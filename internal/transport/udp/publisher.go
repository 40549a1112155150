// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"audioscope/internal/analysis"
	applog "audioscope/internal/log"
	"audioscope/internal/transport"
)

// SpectrumSource is implemented by values that carry a spectrum, such as
// session reports.
type SpectrumSource interface {
	SpectrumSeries() *analysis.Spectrum
}

// Publisher is a transport that sends every published spectrum over UDP,
// split into as many packets as its length needs. Values without a spectrum
// are ignored.
type Publisher struct {
	sender      *Sender
	minInterval time.Duration // Packets closer together than this are dropped; 0 disables
	now         func() time.Time

	mtx         sync.Mutex
	sequenceNum uint32
	lastSent    time.Time
	packet      *bytes.Buffer // Reused between packets
}

var _ transport.Transport = (*Publisher)(nil)

// NewPublisher wraps sender.
func NewPublisher(sender *Sender, minInterval time.Duration) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if minInterval < 0 {
		minInterval = 0
	}
	applog.Infof("UDPPublisher: Initializing (target %s, min interval %s)", sender.Target(), minInterval)

	return &Publisher{
		sender:      sender,
		minInterval: minInterval,
		now:         time.Now,
		packet:      new(bytes.Buffer),
	}, nil
}

// Send implements transport.Transport.
func (p *Publisher) Send(data any) error {
	src, ok := data.(SpectrumSource)
	if !ok {
		return nil
	}
	spec := src.SpectrumSeries()
	if spec == nil {
		return nil
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()

	now := p.now()
	if p.minInterval > 0 && !p.lastSent.IsZero() && now.Sub(p.lastSent) < p.minInterval {
		applog.Debugf("UDPPublisher: dropping packet, last one sent %s ago", now.Sub(p.lastSent))
		return nil
	}

	p.sequenceNum++
	total := spec.Len()
	packets := 0
	// An empty spectrum still yields one header-only packet.
	for offset := 0; offset == 0 || offset < total; offset += MaxPacketBins {
		p.packet.Reset()
		if err := EncodePacket(p.packet, p.sequenceNum, now.UnixNano(), spec, offset); err != nil {
			return fmt.Errorf("UDPPublisher: packing packet %d at bin %d: %w", p.sequenceNum, offset, err)
		}
		if err := p.sender.Send(p.packet.Bytes()); err != nil {
			return err
		}
		packets++
	}
	p.lastSent = now

	applog.Debugf("UDPPublisher: Sent spectrum %d (%d bins in %d packets)", p.sequenceNum, total, packets)
	return nil
}

// Close implements transport.Transport and closes the sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}

/*
Packet layout, BigEndian:

| Field       | Type      | Bytes | Description                               |
|-------------|-----------|-------|-------------------------------------------|
| Sequence    | uint32    | 4     | Increases by one per spectrum             |
| Timestamp   | int64     | 8     | Nanoseconds since epoch                   |
| Sample rate | uint32    | 4     | Hz                                        |
| Total       | uint32    | 4     | Bins in the whole spectrum                |
| Offset      | uint32    | 4     | Index of the first bin in this packet     |
| Count       | uint16    | 2     | Number of magnitudes in this packet (N)   |
| Bin width   | float32   | 4     | Hz between magnitudes                     |
| Magnitudes  | []float32 | N * 4 | Single-sided amplitude, starting at Offset |

A spectrum longer than MaxPacketBins is split over several packets sharing
one sequence number; Offset and Total let the receiver reassemble it.
*/

const (
	// HeaderSize is the fixed part of a packet.
	HeaderSize = 4 + 8 + 4 + 4 + 4 + 2 + 4

	// MaxDatagramSize is the largest UDP payload over IPv4.
	MaxDatagramSize = 65507

	// MaxPacketBins is the most magnitudes one packet carries.
	MaxPacketBins = (MaxDatagramSize - HeaderSize) / 4
)

// Packet is a decoded spectrum packet.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	SampleRate uint32
	Total      uint32
	Offset     uint32
	BinWidth   float32
	Magnitudes []float32
}

type header struct {
	Sequence   uint32
	Timestamp  int64
	SampleRate uint32
	Total      uint32
	Offset     uint32
	Count      uint16
	BinWidth   float32
}

// EncodePacket appends the packet carrying spec's bins from offset on, at
// most MaxPacketBins of them, to buf.
func EncodePacket(buf *bytes.Buffer, seq uint32, timestamp int64, spec *analysis.Spectrum, offset int) error {
	total := spec.Len()
	if offset < 0 || (offset > 0 && offset >= total) {
		return fmt.Errorf("offset %d outside spectrum of %d bins", offset, total)
	}
	count := min(total-offset, MaxPacketBins)

	var binWidth float32
	if spec.N > 0 {
		binWidth = float32(float64(spec.SampleRate) / float64(spec.N))
	}

	h := header{
		Sequence:   seq,
		Timestamp:  timestamp,
		SampleRate: uint32(spec.SampleRate),
		Total:      uint32(total),
		Offset:     uint32(offset),
		Count:      uint16(count),
		BinWidth:   binWidth,
	}
	if err := binary.Write(buf, binary.BigEndian, h); err != nil {
		return err
	}

	mags := make([]float32, count)
	for i := range mags {
		mags[i] = float32(spec.Magnitudes[offset+i])
	}
	return binary.Write(buf, binary.BigEndian, mags)
}

// DecodePacket parses a datagram written by EncodePacket.
func DecodePacket(b []byte) (*Packet, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("packet too short: %d bytes", len(b))
	}

	var h header
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, err
	}
	if want := HeaderSize + 4*int(h.Count); len(b) != want {
		return nil, fmt.Errorf("packet length %d does not match %d magnitudes (want %d bytes)", len(b), h.Count, want)
	}
	if uint64(h.Offset)+uint64(h.Count) > uint64(h.Total) {
		return nil, fmt.Errorf("packet bins %d..%d exceed total %d", h.Offset, uint64(h.Offset)+uint64(h.Count), h.Total)
	}

	mags := make([]float32, h.Count)
	if err := binary.Read(r, binary.BigEndian, mags); err != nil {
		return nil, err
	}
	return &Packet{
		Sequence:   h.Sequence,
		Timestamp:  h.Timestamp,
		SampleRate: h.SampleRate,
		Total:      h.Total,
		Offset:     h.Offset,
		BinWidth:   h.BinWidth,
		Magnitudes: mags,
	}, nil
}
