package dnsmsg

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnstype"
)

// Question is the (name, type, class) tuple a lookup is keyed on. It is a
// plain value type with structural equality, so it can be used directly as
// a map key (the cache's key).
type Question struct {
	Name  string
	Type  dnstype.Type
	Class dnsclass.Class
}

// NewQuestion builds a Question with the name lowercased and its trailing
// dot stripped, so equivalent names collide on the same cache key.
func NewQuestion(name string, t dnstype.Type, c dnsclass.Class) Question {
	return Question{Name: normalizeName(name), Type: t, Class: c}
}

func normalizeName(name string) string {
	if name == "." || name == "" {
		return "."
	}
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// marshal encodes the question section: an uncompressed name, QTYPE, QCLASS.
func (q Question) marshal() ([]byte, error) {
	nameBytes, err := encodeName(q.Name)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(nameBytes)+4)
	copy(buf, nameBytes)
	binary.BigEndian.PutUint16(buf[len(nameBytes):], uint16(q.Type))
	binary.BigEndian.PutUint16(buf[len(nameBytes)+2:], uint16(q.Class))
	return buf, nil
}

// decodeQuestion parses a question at offset within msg (the full message,
// since the name may use compression pointers pointing earlier in it).
func decodeQuestion(msg []byte, offset int) (Question, int, error) {
	name, next, err := decodeName(msg, offset)
	if err != nil {
		return Question{}, 0, err
	}
	if next+4 > len(msg) {
		return Question{}, 0, fmt.Errorf("%w: question missing type/class", ErrMalformedName)
	}
	t := dnstype.Type(binary.BigEndian.Uint16(msg[next : next+2]))
	c := dnsclass.Class(binary.BigEndian.Uint16(msg[next+2 : next+4]))
	return Question{Name: normalizeName(name), Type: t, Class: c}, next + 4, nil
}
