// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"math"
	"net"
	"testing"
	"time"

	"audioscope/internal/analysis"
)

type spectrumReport struct{ spec *analysis.Spectrum }

func (r spectrumReport) SpectrumSeries() *analysis.Spectrum { return r.spec }

func testSpectrum() *analysis.Spectrum {
	return &analysis.Spectrum{
		Frequencies: []float64{0, 10, 20, 30},
		Magnitudes:  []float64{0.1, 0.5, 0.25, 0},
		SampleRate:  80,
		N:           8,
	}
}

// listen opens a local UDP socket and returns it with a sender aimed at it.
func listen(t *testing.T) (*net.UDPConn, *Sender) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("Skipping test: cannot listen on UDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	sender, err := NewSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender() failed: %v", err)
	}
	return conn, sender
}

func receive(t *testing.T, conn *net.UDPConn) *Packet {
	t.Helper()
	buf := make([]byte, 64*1024)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() failed: %v", err)
	}
	p, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("DecodePacket() failed: %v", err)
	}
	return p
}

func TestEncodeDecodePacket(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePacket(&buf, 7, 1234, testSpectrum(), 0); err != nil {
		t.Fatalf("EncodePacket() failed: %v", err)
	}
	if got, want := buf.Len(), HeaderSize+4*4; got != want {
		t.Fatalf("packet length = %d, want %d", got, want)
	}

	p, err := DecodePacket(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodePacket() failed: %v", err)
	}
	if p.Sequence != 7 || p.Timestamp != 1234 || p.SampleRate != 80 {
		t.Errorf("header = %+v, want seq 7, ts 1234, rate 80", p)
	}
	if p.Total != 4 || p.Offset != 0 {
		t.Errorf("Total, Offset = %d, %d, want 4, 0", p.Total, p.Offset)
	}
	if p.BinWidth != 10 {
		t.Errorf("BinWidth = %v, want 10", p.BinWidth)
	}
	want := []float32{0.1, 0.5, 0.25, 0}
	for i := range want {
		if p.Magnitudes[i] != want[i] {
			t.Errorf("Magnitudes[%d] = %v, want %v", i, p.Magnitudes[i], want[i])
		}
	}
}

func TestEncodePacketSplitsLongSpectrum(t *testing.T) {
	n := 2*MaxPacketBins + 10
	spec := &analysis.Spectrum{
		Frequencies: make([]float64, n),
		Magnitudes:  make([]float64, n),
		SampleRate:  44100,
		N:           2 * n,
	}
	spec.Magnitudes[MaxPacketBins] = 1

	tests := []struct {
		offset    int
		wantCount int
	}{
		{0, MaxPacketBins},
		{MaxPacketBins, MaxPacketBins},
		{2 * MaxPacketBins, 10},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := EncodePacket(&buf, 1, 0, spec, tt.offset); err != nil {
			t.Fatalf("EncodePacket(offset %d) failed: %v", tt.offset, err)
		}
		if buf.Len() > MaxDatagramSize {
			t.Errorf("offset %d: packet is %d bytes, over %d", tt.offset, buf.Len(), MaxDatagramSize)
		}
		p, err := DecodePacket(buf.Bytes())
		if err != nil {
			t.Fatalf("DecodePacket(offset %d) failed: %v", tt.offset, err)
		}
		if len(p.Magnitudes) != tt.wantCount || int(p.Offset) != tt.offset || int(p.Total) != n {
			t.Errorf("offset %d: got %d bins at %d of %d, want %d", tt.offset, len(p.Magnitudes), p.Offset, p.Total, tt.wantCount)
		}
		if tt.offset == MaxPacketBins && p.Magnitudes[0] != 1 {
			t.Errorf("second packet starts with %v, want 1", p.Magnitudes[0])
		}
	}

	var buf bytes.Buffer
	if err := EncodePacket(&buf, 1, 0, spec, n); err == nil {
		t.Error("EncodePacket() past the end succeeded")
	}
}

func TestDecodePacketRejectsBadLength(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePacket(&buf, 1, 0, testSpectrum(), 0); err != nil {
		t.Fatal(err)
	}
	tests := map[string][]byte{
		"empty":     nil,
		"short":     buf.Bytes()[:HeaderSize-1],
		"truncated": buf.Bytes()[:buf.Len()-1],
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodePacket(b); err == nil {
				t.Error("DecodePacket() succeeded, want error")
			}
		})
	}
}

func TestPublisherSendsSpectrum(t *testing.T) {
	conn, sender := listen(t)
	pub, err := NewPublisher(sender, 0)
	if err != nil {
		t.Fatalf("NewPublisher() failed: %v", err)
	}
	defer pub.Close()

	for i := 1; i <= 2; i++ {
		if err := pub.Send(spectrumReport{testSpectrum()}); err != nil {
			t.Fatalf("Send() failed: %v", err)
		}
		p := receive(t, conn)
		if p.Sequence != uint32(i) {
			t.Errorf("Sequence = %d, want %d", p.Sequence, i)
		}
		if len(p.Magnitudes) != 4 {
			t.Errorf("len(Magnitudes) = %d, want 4", len(p.Magnitudes))
		}
	}
}

func TestPublisherSendsFiveSecondSpectrum(t *testing.T) {
	conn, sender := listen(t)
	pub, err := NewPublisher(sender, 0)
	if err != nil {
		t.Fatalf("NewPublisher() failed: %v", err)
	}
	defer pub.Close()

	const rate = 22050
	seg := &analysis.Segment{
		Samples:    make([]float64, 5*rate),
		SampleRate: rate,
		Range:      analysis.SampleRange{Start: 0, End: 5 * rate},
	}
	for i := range seg.Samples {
		seg.Samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / rate)
	}
	spec := analysis.ComputeSpectrum(seg)
	wantPackets := (spec.Len() + MaxPacketBins - 1) / MaxPacketBins

	// Read while sending so the socket buffer never has to hold the whole
	// spectrum.
	packets := make(chan *Packet, wantPackets)
	errs := make(chan error, 1)
	go func() {
		buf := make([]byte, MaxDatagramSize)
		for range wantPackets {
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				errs <- err
				return
			}
			p, err := DecodePacket(buf[:n])
			if err != nil {
				errs <- err
				return
			}
			packets <- p
		}
		close(packets)
	}()

	if err := pub.Send(spectrumReport{spec}); err != nil {
		t.Fatalf("Send() of %d bins failed: %v", spec.Len(), err)
	}

	got := make([]float32, spec.Len())
	seen := 0
	for seen < wantPackets {
		select {
		case p, ok := <-packets:
			if !ok {
				t.Fatalf("received %d packets, want %d", seen, wantPackets)
			}
			if p.Sequence != 1 || int(p.Total) != spec.Len() {
				t.Fatalf("packet header = seq %d total %d, want 1, %d", p.Sequence, p.Total, spec.Len())
			}
			copy(got[p.Offset:], p.Magnitudes)
			seen++
		case err := <-errs:
			t.Fatalf("receive failed: %v", err)
		}
	}

	peak := 0
	for i, m := range got {
		if m > got[peak] {
			peak = i
		}
	}
	if f := float64(peak) * rate / float64(spec.N); math.Abs(f-440) > 1 {
		t.Errorf("reassembled peak at %.1f Hz, want 440", f)
	}
}

func TestPublisherIgnoresOtherValues(t *testing.T) {
	_, sender := listen(t)
	pub, err := NewPublisher(sender, 0)
	if err != nil {
		t.Fatalf("NewPublisher() failed: %v", err)
	}
	defer pub.Close()

	for _, v := range []any{"hello", 42, spectrumReport{nil}} {
		if err := pub.Send(v); err != nil {
			t.Errorf("Send(%T) failed: %v", v, err)
		}
	}
	if pub.sequenceNum != 0 {
		t.Errorf("sequenceNum = %d, want 0", pub.sequenceNum)
	}
}

func TestPublisherMinInterval(t *testing.T) {
	conn, sender := listen(t)
	pub, err := NewPublisher(sender, time.Second)
	if err != nil {
		t.Fatalf("NewPublisher() failed: %v", err)
	}
	defer pub.Close()

	now := time.Unix(100, 0)
	pub.now = func() time.Time { return now }

	send := func() {
		t.Helper()
		if err := pub.Send(spectrumReport{testSpectrum()}); err != nil {
			t.Fatalf("Send() failed: %v", err)
		}
	}

	send()
	now = now.Add(500 * time.Millisecond)
	send() // Dropped
	now = now.Add(time.Second)
	send()

	if pub.sequenceNum != 2 {
		t.Errorf("sequenceNum = %d, want 2", pub.sequenceNum)
	}
	first, second := receive(t, conn), receive(t, conn)
	if first.Sequence != 1 || second.Sequence != 2 {
		t.Errorf("sequences = %d, %d, want 1, 2", first.Sequence, second.Sequence)
	}
	if second.Timestamp-first.Timestamp != int64(1500*time.Millisecond) {
		t.Errorf("timestamp gap = %d, want 1.5s", second.Timestamp-first.Timestamp)
	}
}

func TestSenderClosed(t *testing.T) {
	_, sender := listen(t)
	if err := sender.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
	if err := sender.Send([]byte{1}); err != ErrSenderClosed {
		t.Errorf("Send() after Close = %v, want ErrSenderClosed", err)
	}
	if sender.Target() != "" {
		t.Errorf("Target() after Close = %q, want empty", sender.Target())
	}
}

func TestNewPublisherNilSender(t *testing.T) {
	if _, err := NewPublisher(nil, 0); err == nil {
		t.Error("NewPublisher(nil) succeeded, want error")
	}
}
