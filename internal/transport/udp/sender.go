// SPDX-License-Identifier: MIT

// Package udp publishes spectrum packets to a UDP listener, such as a
// visualizer running next to the analyzer.
package udp

import (
	"net"
	"sync"

	applog "audioscope/internal/log"

	"github.com/pkg/errors"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("UDP sender is closed")

// Sender writes datagrams to one target.
type Sender struct {
	conn *net.UDPConn
	mtx  sync.Mutex // Guards conn against a concurrent Close
}

// NewSender dials targetAddress ("host:port"). UDP dialing only fixes the
// peer; nothing is sent until Send.
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve UDP target %q", targetAddress)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial UDP target %q", targetAddress)
	}

	applog.Infof("UDPSender: Connection established to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Target returns the remote address.
func (s *Sender) Target() string {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// Send transmits data as one datagram.
func (s *Sender) Send(data []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.conn == nil {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return errors.Wrap(err, "send UDP packet")
	}
	return nil
}

// Close closes the socket. Further calls are no-ops.
func (s *Sender) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.conn == nil {
		return nil
	}
	applog.Infof("UDPSender: Closing connection to %s", s.conn.RemoteAddr())
	err := s.conn.Close()
	s.conn = nil
	return errors.Wrap(err, "close UDP connection")
}
