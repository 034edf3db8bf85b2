package dnsmsg

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnstype"
)

// ResourceRecord is a single answer/authority/additional record. Payload is
// carried as a single textual Value: a dotted IPv4 address for A, a
// non-canonical colon-hex string for AAAA (no "::" shorthand — all eight
// groups are written, each with its leading zeros stripped, rather than
// collapsing to the canonical RFC 5952 form), a host name for NS/CNAME/MX, or a lowercase hex string for
// anything else.
type ResourceRecord struct {
	Question Question
	TTL      uint32
	Value    string
}

// Equal compares question and payload, ignoring TTL, for cache dedup.
func (r ResourceRecord) Equal(o ResourceRecord) bool {
	return r.Question == o.Question && r.Value == o.Value
}

const rrFixedFieldsSize = 2 + 2 + 4 + 2 // TYPE, CLASS, TTL, RDLENGTH

// decodeRR parses one resource record at offset within msg. If the record's
// RDATA cannot be interpreted for its declared type, ok is false but next
// is still correct: the cursor always lands immediately after the
// original RDLENGTH-sized window.
func decodeRR(msg []byte, offset int) (rr ResourceRecord, next int, ok bool, err error) {
	name, afterName, err := decodeName(msg, offset)
	if err != nil {
		return ResourceRecord{}, 0, false, err
	}
	if afterName+rrFixedFieldsSize > len(msg) {
		return ResourceRecord{}, 0, false, fmt.Errorf("%w: record header truncated", ErrMalformedName)
	}

	cur := afterName
	typ := dnstype.Type(binary.BigEndian.Uint16(msg[cur : cur+2]))
	cur += 2
	class := dnsclass.Class(binary.BigEndian.Uint16(msg[cur : cur+2]))
	cur += 2
	ttl := binary.BigEndian.Uint32(msg[cur : cur+4])
	cur += 4
	rdlength := binary.BigEndian.Uint16(msg[cur : cur+2])
	cur += 2

	rdataStart := cur
	rdataEnd := rdataStart + int(rdlength)
	if rdataEnd > len(msg) {
		return ResourceRecord{}, 0, false, fmt.Errorf("%w: rdata exceeds message bounds", ErrMalformedName)
	}
	// Whatever happens while decoding RDATA, the cursor resumes exactly
	// here: guards against a compression pointer inside RDATA leaving it
	// anywhere else.
	next = rdataEnd

	value, valueOK := decodeRDATA(msg, typ, rdataStart, rdataEnd)
	if !valueOK {
		return ResourceRecord{}, next, false, nil
	}

	rr = ResourceRecord{
		Question: Question{Name: normalizeName(name), Type: typ, Class: class},
		TTL:      ttl,
		Value:    value,
	}
	return rr, next, true, nil
}

func decodeRDATA(msg []byte, typ dnstype.Type, start, end int) (string, bool) {
	data := msg[start:end]
	switch typ {
	case dnstype.A:
		if len(data) != 4 {
			return "", false
		}
		return net.IPv4(data[0], data[1], data[2], data[3]).String(), true

	case dnstype.AAAA:
		if len(data) != 16 {
			return "", false
		}
		return formatAAAA(data), true

	case dnstype.NS, dnstype.CNAME:
		name, _, err := decodeName(msg, start)
		if err != nil {
			return "", false
		}
		return normalizeName(name), true

	case dnstype.MX:
		if len(data) < 3 {
			return "", false
		}
		name, _, err := decodeName(msg, start+2)
		if err != nil {
			return "", false
		}
		return normalizeName(name), true

	default:
		return hex.EncodeToString(data), true
	}
}

// formatAAAA renders 16 raw bytes as eight colon-separated hex groups with
// leading zeros stripped per group (a bare "0" is preserved). This is
// intentionally non-canonical: no "::" shorthand.
func formatAAAA(data []byte) string {
	groups := make([]string, 8)
	for i := 0; i < 8; i++ {
		v := binary.BigEndian.Uint16(data[i*2 : i*2+2])
		groups[i] = strconv.FormatUint(uint64(v), 16)
	}
	return strings.Join(groups, ":")
}

// marshal encodes rr for the outgoing wire format. Only used for tests and
// for round-tripping synthetic records; the resolver itself never
// constructs outbound RRs (it only sends questions).
func (r ResourceRecord) marshal() ([]byte, error) {
	nameBytes, err := encodeName(r.Question.Name)
	if err != nil {
		return nil, err
	}
	rdata, err := encodeRDATA(r.Question.Type, r.Value)
	if err != nil {
		return nil, err
	}
	if len(rdata) > 0xFFFF {
		return nil, fmt.Errorf("dnsmsg: rdata too long: %d bytes", len(rdata))
	}

	buf := make([]byte, 0, len(nameBytes)+rrFixedFieldsSize+len(rdata))
	buf = append(buf, nameBytes...)
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(r.Question.Type))
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint16(tmp[:], uint16(r.Question.Class))
	buf = append(buf, tmp[:]...)
	var ttlBuf [4]byte
	binary.BigEndian.PutUint32(ttlBuf[:], r.TTL)
	buf = append(buf, ttlBuf[:]...)
	binary.BigEndian.PutUint16(tmp[:], uint16(len(rdata)))
	buf = append(buf, tmp[:]...)
	buf = append(buf, rdata...)
	return buf, nil
}

func encodeRDATA(typ dnstype.Type, value string) ([]byte, error) {
	switch typ {
	case dnstype.A:
		ip := net.ParseIP(value).To4()
		if ip == nil {
			return nil, fmt.Errorf("dnsmsg: %q is not a valid IPv4 address", value)
		}
		return ip, nil

	case dnstype.AAAA:
		return encodeAAAA(value)

	case dnstype.NS, dnstype.CNAME:
		return encodeName(value)

	case dnstype.MX:
		name, err := encodeName(value)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, 2, 2+len(name))
		buf = append(buf, name...)
		return buf, nil

	default:
		raw, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("dnsmsg: value for type %s must be hex: %w", typ, err)
		}
		return raw, nil
	}
}

func encodeAAAA(value string) ([]byte, error) {
	groups := strings.Split(value, ":")
	if len(groups) != 8 {
		return nil, fmt.Errorf("dnsmsg: AAAA value %q must have 8 groups", value)
	}
	buf := make([]byte, 16)
	for i, g := range groups {
		v, err := strconv.ParseUint(g, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("dnsmsg: invalid AAAA group %q: %w", g, err)
		}
		binary.BigEndian.PutUint16(buf[i*2:i*2+2], uint16(v))
	}
	return buf, nil
}
