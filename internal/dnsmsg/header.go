package dnsmsg

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Header is the fixed 12-byte DNS message header (RFC 1035 section 4.1.1).
// Multi-bit fields live inside a 2-byte Flags array rather than a single
// int so that the wire layout and the in-memory layout line up directly.
type Header struct {
	ID      [2]byte
	Flags   [2]byte
	QDCOUNT [2]byte
	ANCOUNT [2]byte
	NSCOUNT [2]byte
	ARCOUNT [2]byte
}

const headerSize = 12

// ResponseCode is the 4-bit RCODE field.
type ResponseCode uint8

const (
	NoError ResponseCode = iota
	FormatError
	ServerFailure
	NameError
	NotImplemented
	Refused
)

func (c ResponseCode) String() string {
	switch c {
	case NoError:
		return "NoError"
	case FormatError:
		return "FormatError"
	case ServerFailure:
		return "ServerFailure"
	case NameError:
		return "NameError"
	case NotImplemented:
		return "NotImplemented"
	case Refused:
		return "Refused"
	default:
		return "ReservedForFutureUse"
	}
}

// SetRandomID draws a cryptographically strong 16-bit transaction ID.
func (h *Header) SetRandomID() error {
	n, err := rand.Read(h.ID[:])
	if err != nil {
		return err
	}
	if n != len(h.ID) {
		return fmt.Errorf("dnsmsg: short read generating transaction id: got %d bytes, want %d", n, len(h.ID))
	}
	return nil
}

// ID16 returns the transaction ID as a uint16.
func (h *Header) ID16() uint16 {
	return binary.BigEndian.Uint16(h.ID[:])
}

// SetID16 sets the transaction ID.
func (h *Header) SetID16(id uint16) {
	binary.BigEndian.PutUint16(h.ID[:], id)
}

const (
	qrMask byte = 0b10000000
	aaMask byte = 0b00000100
	rdMask byte = 0b00000001
	raMask byte = 0b10000000
	rcMask byte = 0b00001111
)

// IsResponse reports whether the QR bit is set.
func (h *Header) IsResponse() bool {
	return h.Flags[0]&qrMask != 0
}

// SetQR sets or clears the QR (query/response) bit.
func (h *Header) SetQR(isResponse bool) {
	if isResponse {
		h.Flags[0] |= qrMask
	} else {
		h.Flags[0] &^= qrMask
	}
}

// IsAA reports whether the Authoritative Answer bit is set.
func (h *Header) IsAA() bool {
	return h.Flags[0]&aaMask != 0
}

// SetAA sets or clears the Authoritative Answer bit.
func (h *Header) SetAA(v bool) {
	if v {
		h.Flags[0] |= aaMask
	} else {
		h.Flags[0] &^= aaMask
	}
}

// SetRD sets or clears the Recursion Desired bit. Queries issued by this
// resolver always clear it (RD=0): iterative resolution never asks a
// remote server to recurse on our behalf.
func (h *Header) SetRD(v bool) {
	if v {
		h.Flags[0] |= rdMask
	} else {
		h.Flags[0] &^= rdMask
	}
}

// IsRA reports whether the Recursion Available bit is set.
func (h *Header) IsRA() bool {
	return h.Flags[1]&raMask != 0
}

// RCODE returns the response code.
func (h *Header) RCODE() ResponseCode {
	return ResponseCode(h.Flags[1] & rcMask)
}

// SetRCODE sets the response code.
func (h *Header) SetRCODE(rc ResponseCode) {
	h.Flags[1] = (h.Flags[1] &^ rcMask) | (byte(rc) & rcMask)
}

func (h *Header) QDCOUNT16() uint16 { return binary.BigEndian.Uint16(h.QDCOUNT[:]) }
func (h *Header) ANCOUNT16() uint16 { return binary.BigEndian.Uint16(h.ANCOUNT[:]) }
func (h *Header) NSCOUNT16() uint16 { return binary.BigEndian.Uint16(h.NSCOUNT[:]) }
func (h *Header) ARCOUNT16() uint16 { return binary.BigEndian.Uint16(h.ARCOUNT[:]) }

func (h *Header) SetQDCOUNT(v int) error { return setCount16(h.QDCOUNT[:], v) }
func (h *Header) SetANCOUNT(v int) error { return setCount16(h.ANCOUNT[:], v) }
func (h *Header) SetNSCOUNT(v int) error { return setCount16(h.NSCOUNT[:], v) }
func (h *Header) SetARCOUNT(v int) error { return setCount16(h.ARCOUNT[:], v) }

func setCount16(dst []byte, v int) error {
	if v < 0 || v > 0xFFFF {
		return fmt.Errorf("dnsmsg: count %d overflows uint16", v)
	}
	binary.BigEndian.PutUint16(dst, uint16(v))
	return nil
}

// marshal writes the 12-byte header to buf.
func (h *Header) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:2], h.ID[:])
	copy(buf[2:4], h.Flags[:])
	copy(buf[4:6], h.QDCOUNT[:])
	copy(buf[6:8], h.ANCOUNT[:])
	copy(buf[8:10], h.NSCOUNT[:])
	copy(buf[10:12], h.ARCOUNT[:])
	return buf
}

// unmarshalHeader parses the first 12 bytes of a message.
func unmarshalHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("dnsmsg: header requires %d bytes, got %d", headerSize, len(data))
	}
	var h Header
	copy(h.ID[:], data[0:2])
	copy(h.Flags[:], data[2:4])
	copy(h.QDCOUNT[:], data[4:6])
	copy(h.ANCOUNT[:], data[6:8])
	copy(h.NSCOUNT[:], data[8:10])
	copy(h.ARCOUNT[:], data[10:12])
	return h, nil
}
