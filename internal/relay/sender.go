// Package relay hands raw form bodies from the HTTP front end to the
// datagram listener that persists them.
package relay

import (
	"context"
	"fmt"
	"net"
)

// Sender forwards a raw form body to the relay listener.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// UDPSender sends each payload as a single datagram on a fresh socket.
// There is no acknowledgement and no retry.
type UDPSender struct {
	addr   string
	dialer net.Dialer
}

// NewUDPSender creates a sender targeting the listener at addr.
func NewUDPSender(addr string) *UDPSender {
	return &UDPSender{addr: addr}
}

// Send opens a socket, writes payload once and closes the socket.
func (s *UDPSender) Send(ctx context.Context, payload []byte) error {
	conn, err := s.dialer.DialContext(ctx, "udp", s.addr)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", s.addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("send to relay %s: %w", s.addr, err)
	}
	return nil
}
