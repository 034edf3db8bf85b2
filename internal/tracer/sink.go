// Package tracer defines the passive observer the resolver reports its
// well-defined events to. A Sink never influences control flow; it only
// watches.
package tracer

import (
	"github.com/google/uuid"

	"github.com/blazskufca/iresolve/internal/dnsmsg"
)

// QueryToSendEvent fires immediately before each datagram transmission,
// including retries.
type QueryToSendEvent struct {
	QueryID  uuid.UUID
	Question dnsmsg.Question
	Server   string
	Txid     uint16
}

// ResponseHeaderEvent fires immediately after parsing a response header,
// before any section is parsed.
type ResponseHeaderEvent struct {
	QueryID       uuid.UUID
	Txid          uint16
	Authoritative bool
	RCODE         dnsmsg.ResponseCode
}

// SectionHeaderEvent fires before parsing the answer, authority, or
// additional section, carrying that section's record count.
type SectionHeaderEvent struct {
	QueryID uuid.UUID
	Count   int
}

// RecordEvent fires once per successfully parsed record.
type RecordEvent struct {
	QueryID   uuid.UUID
	Record    dnsmsg.ResourceRecord
	TypeCode  int
	ClassCode int
}

// Sink is the observer interface a resolver reports to. Every GetDirect
// walk the resolver performs is tagged with a QueryID (a random UUID,
// distinct from the 16-bit wire transaction ID) so that a single trace
// consumer can correlate every event belonging to that walk — including
// its retries and its delegation hops, which each carry their own
// transaction ID. GetRecursive runs one such walk per CNAME hop and each
// hop gets its own QueryID; the hops of one GetRecursive call share no ID.
type Sink interface {
	QueryToSend(QueryToSendEvent)
	ResponseHeader(ResponseHeaderEvent)
	AnswersHeader(SectionHeaderEvent)
	NameserversHeader(SectionHeaderEvent)
	AdditionalHeader(SectionHeaderEvent)
	ResourceRecord(RecordEvent)
}

// NewQueryID returns a fresh correlation ID for a top-level resolver
// invocation.
func NewQueryID() uuid.UUID {
	return uuid.New()
}

// Noop discards every event. It is the default sink so resolver
// construction never requires a tracer.
type Noop struct{}

func (Noop) QueryToSend(QueryToSendEvent)         {}
func (Noop) ResponseHeader(ResponseHeaderEvent)   {}
func (Noop) AnswersHeader(SectionHeaderEvent)     {}
func (Noop) NameserversHeader(SectionHeaderEvent) {}
func (Noop) AdditionalHeader(SectionHeaderEvent)  {}
func (Noop) ResourceRecord(RecordEvent)           {}

// Multi fans the same event out to every sink in order. Useful for
// combining, say, a Slog sink for humans with a Prometheus sink for
// dashboards.
type Multi []Sink

func (m Multi) QueryToSend(e QueryToSendEvent) {
	for _, s := range m {
		s.QueryToSend(e)
	}
}

func (m Multi) ResponseHeader(e ResponseHeaderEvent) {
	for _, s := range m {
		s.ResponseHeader(e)
	}
}

func (m Multi) AnswersHeader(e SectionHeaderEvent) {
	for _, s := range m {
		s.AnswersHeader(e)
	}
}

func (m Multi) NameserversHeader(e SectionHeaderEvent) {
	for _, s := range m {
		s.NameserversHeader(e)
	}
}

func (m Multi) AdditionalHeader(e SectionHeaderEvent) {
	for _, s := range m {
		s.AdditionalHeader(e)
	}
}

func (m Multi) ResourceRecord(e RecordEvent) {
	for _, s := range m {
		s.ResourceRecord(e)
	}
}
