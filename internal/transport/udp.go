// Package transport implements a single query-response exchange with a
// nameserver over UDP, with its own retry and timeout policy. Grounded on
// app/DNS.go:queryNameserver's shape (a fresh *net.UDPConn per exchange, a
// deadline, and a fixed-size read buffer), reworked to add an explicit
// retry count and transaction-ID/QR-bit response matching instead of
// relying on the connected socket alone to discard stray datagrams.
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/tracer"
)

const (
	// Timeout is the per-attempt deadline.
	Timeout = 5 * time.Second
	// MaxTransmissions is the total number of datagrams sent for one
	// exchange, including the first attempt.
	MaxTransmissions = 3

	// socketBufferSize tunes the per-exchange socket's kernel buffers,
	// grounded on jroosing-HydraDNS's internal/server/udp_server.go, which
	// sets generous SO_RCVBUF/SO_SNDBUF sizes for burst handling.
	socketBufferSize = 256 * 1024
)

// ErrExhausted is returned when every transmission attempt timed out or
// produced an unusable response.
var ErrExhausted = errors.New("transport: exhausted all transmission attempts")

// Exchange sends queryBytes (whose first two bytes are the wire
// transaction ID, txid) to server over a fresh UDP socket, retrying up to
// MaxTransmissions times on timeout. It returns the first datagram whose
// transaction ID matches txid and whose QR bit is set, discarding anything
// else as a stray response for a different exchange. sink.QueryToSend
// fires before every transmission, including retries, tagged with
// queryID.
func Exchange(ctx context.Context, sink tracer.Sink, queryID uuid.UUID, question dnsmsg.Question, server string, queryBytes []byte, txid uint16) ([]byte, error) {
	conn, err := dial(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", server, err)
	}
	defer conn.Close()

	// A response larger than dnsmsg.MaxUDPSize is implicitly truncated
	// here: whatever lands in the first 512 bytes is all Read returns,
	// with no TC-bit handling or TCP retry.
	buf := make([]byte, dnsmsg.MaxUDPSize)

	for attempt := 0; attempt < MaxTransmissions; attempt++ {
		sink.QueryToSend(tracer.QueryToSendEvent{
			QueryID:  queryID,
			Question: question,
			Server:   server,
			Txid:     txid,
		})

		if err := conn.SetDeadline(time.Now().Add(Timeout)); err != nil {
			return nil, fmt.Errorf("transport: set deadline: %w", err)
		}

		if _, err := conn.Write(queryBytes); err != nil {
			return nil, fmt.Errorf("transport: write to %s: %w", server, err)
		}

		for {
			n, err := conn.Read(buf)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					break // fall through to the next attempt
				}
				return nil, fmt.Errorf("transport: read from %s: %w", server, err)
			}
			if !looksLikeMatchingResponse(buf[:n], txid) {
				continue // stray datagram for a different exchange, keep reading this attempt
			}
			out := make([]byte, n)
			copy(out, buf[:n])
			return out, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, ErrExhausted
}

// looksLikeMatchingResponse reports whether msg's transaction ID matches
// txid and its QR bit marks it a response.
func looksLikeMatchingResponse(msg []byte, txid uint16) bool {
	if len(msg) < 3 {
		return false
	}
	gotID := binary.BigEndian.Uint16(msg[0:2])
	if gotID != txid {
		return false
	}
	const qrMask = 0x80
	return msg[2]&qrMask != 0
}

// dial opens a fresh UDP socket connected to server, with tuned kernel
// send/receive buffers. A fresh socket per exchange, rather than a shared
// one, keeps demultiplexing simple: one exchange, one socket, one
// deadline.
func dial(ctx context.Context, server string) (*net.UDPConn, error) {
	d := net.Dialer{
		Control: func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufferSize); e != nil {
					ctrlErr = e
					return
				}
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, socketBufferSize)
			})
			if err != nil {
				return err
			}
			// Buffer tuning is best-effort; some sandboxes deny the
			// setsockopt call. Ignore ctrlErr rather than fail the dial.
			_ = ctrlErr
			return nil
		},
	}

	conn, err := d.DialContext(ctx, "udp", server)
	if err != nil {
		return nil, err
	}
	return conn.(*net.UDPConn), nil
}
