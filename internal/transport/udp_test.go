package transport

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/dnstype"
	"github.com/blazskufca/iresolve/internal/tracer"
)

func startFakeServer(t *testing.T, respond func(query []byte) []byte) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to start fake server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			resp := respond(buf[:n])
			if resp == nil {
				continue
			}
			_, _ = conn.WriteToUDP(resp, addr)
		}
	}()

	return conn.LocalAddr().String()
}

func TestExchange_Success(t *testing.T) {
	server := startFakeServer(t, func(query []byte) []byte {
		resp := make([]byte, len(query))
		copy(resp, query)
		resp[2] |= 0x80 // QR bit
		return resp
	})

	q := dnsmsg.NewQuestion("example.com", dnstype.A, dnsclass.IN)
	query := make([]byte, 12)
	binary.BigEndian.PutUint16(query[0:2], 0xABCD)

	got, err := Exchange(context.Background(), tracer.Noop{}, uuid.New(), q, server, query, 0xABCD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(query) {
		t.Fatalf("expected echoed response of length %d, got %d", len(query), len(got))
	}
}

func TestExchange_IgnoresMismatchedTxid(t *testing.T) {
	first := true
	server := startFakeServer(t, func(query []byte) []byte {
		resp := make([]byte, len(query))
		copy(resp, query)
		resp[2] |= 0x80
		if first {
			// Respond with the wrong transaction ID once.
			binary.BigEndian.PutUint16(resp[0:2], 0xFFFF)
			first = false
		}
		return resp
	})

	q := dnsmsg.NewQuestion("example.com", dnstype.A, dnsclass.IN)
	query := make([]byte, 12)
	binary.BigEndian.PutUint16(query[0:2], 0x1234)

	// The fake server only replies to the first write with a bad ID; the
	// client's retry loop sends a second datagram, which gets a correct
	// reply from the *next* invocation of respond (first is now false).
	got, err := Exchange(context.Background(), tracer.Noop{}, uuid.New(), q, server, query, 0x1234)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if binary.BigEndian.Uint16(got[0:2]) != 0x1234 {
		t.Fatalf("expected matching txid in response")
	}
}

func TestExchange_ExhaustsRetries(t *testing.T) {
	server := startFakeServer(t, func(query []byte) []byte {
		return nil // never respond
	})

	q := dnsmsg.NewQuestion("example.com", dnstype.A, dnsclass.IN)
	query := make([]byte, 12)
	binary.BigEndian.PutUint16(query[0:2], 0x5678)

	start := time.Now()
	_, err := Exchange(context.Background(), tracer.Noop{}, uuid.New(), q, server, query, 0x5678)
	elapsed := time.Since(start)

	if err != ErrExhausted {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if elapsed < MaxTransmissions*Timeout {
		t.Fatalf("expected at least %d timeouts, only waited %v", MaxTransmissions, elapsed)
	}
}
