// Copyright 2025 TGP Authors

package transport

import (
	"context"
	"net"
	"time"

	"github.com/tgp-labs/tgp/pkg/codec"
	"github.com/tgp-labs/tgp/pkg/tgperrors"
)

// UDPTransport sends and receives datagrams over a connected UDP socket. A
// session is exactly one peer, so a single net.UDPConn dialed to the
// counterparty's address is sufficient; there is no multiplexing to do.
type UDPTransport struct {
	conn *net.UDPConn
}

// DialUDP opens a UDP "connection" (a filter on the local socket so reads
// only return datagrams from remoteAddr) to the counterparty.
func DialUDP(localAddr, remoteAddr string) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, tgperrors.Wrap(tgperrors.KindTransportClosed, "resolve remote addr", err)
	}
	var laddr *net.UDPAddr
	if localAddr != "" {
		laddr, err = net.ResolveUDPAddr("udp", localAddr)
		if err != nil {
			return nil, tgperrors.Wrap(tgperrors.KindTransportClosed, "resolve local addr", err)
		}
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, tgperrors.Wrap(tgperrors.KindTransportClosed, "dial udp", err)
	}
	return &UDPTransport{conn: conn}, nil
}

// Send writes payload as a single UDP datagram. Fragmentation beyond
// codec.MaxFrameBytes is the caller's problem to avoid, not this layer's to
// solve: UDP datagrams above the path MTU are simply dropped in transit,
// which the flooding driver already tolerates.
func (t *UDPTransport) Send(ctx context.Context, payload []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(dl)
	}
	_, err := t.conn.Write(payload)
	if err != nil {
		return tgperrors.Wrap(tgperrors.KindTransportClosed, "udp write", err)
	}
	return nil
}

// Receive reads one datagram, honoring ctx's deadline via the conn's I/O
// deadline. buf is sized to the largest frame the codec will ever produce.
func (t *UDPTransport) Receive(ctx context.Context) (Datagram, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(dl)
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, codec.MaxFrameBytes+headerOverhead)
	n, err := t.conn.Read(buf)
	if err != nil {
		if ctx.Err() != nil {
			return Datagram{}, ctx.Err()
		}
		return Datagram{}, tgperrors.Wrap(tgperrors.KindTransportClosed, "udp read", err)
	}
	return Datagram{Payload: buf[:n]}, nil
}

// Close releases the underlying socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

const headerOverhead = 1 + 4
