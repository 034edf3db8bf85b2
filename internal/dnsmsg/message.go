// Package dnsmsg implements the DNS wire codec: encoding an outgoing query,
// decoding an incoming response, and the name-compression scheme both
// share. It is a standalone, side-effect-free translation between RFC 1035
// bytes and Go values.
package dnsmsg

import (
	"fmt"
)

// MaxUDPSize is the maximum size of a message traveling over the UDP
// transport this resolver uses.
const MaxUDPSize = 512

// DecodeHooks lets a caller observe decode progress as each part of a
// response is parsed, without dnsmsg depending on the tracer package — the
// tracer sink's Resolver-facing adapter supplies these. Every field is
// optional; nil hooks are simply not called.
type DecodeHooks struct {
	Header      func(id uint16, authoritative bool, rcode ResponseCode)
	Answers     func(count int)
	Nameservers func(count int)
	Additional  func(count int)
	Record      func(rr ResourceRecord, typ int, class int)
}

// Response is a decoded DNS response message.
type Response struct {
	ID            uint16
	Authoritative bool
	RCODE         ResponseCode
	Question      Question
	Answers       []ResourceRecord
	Authority     []ResourceRecord
	Additional    []ResourceRecord
}

// EncodeQuery builds a non-recursive standard query for q and returns the
// wire bytes together with the transaction ID it embedded.
func EncodeQuery(q Question) (buf []byte, txid uint16, err error) {
	var h Header
	if err := h.SetRandomID(); err != nil {
		return nil, 0, fmt.Errorf("dnsmsg: generating transaction id: %w", err)
	}
	h.SetQR(false)
	h.SetRD(false)
	if err := h.SetQDCOUNT(1); err != nil {
		return nil, 0, err
	}

	qBytes, err := q.marshal()
	if err != nil {
		return nil, 0, fmt.Errorf("dnsmsg: encoding question: %w", err)
	}

	out := make([]byte, 0, headerSize+len(qBytes))
	out = append(out, h.marshal()...)
	out = append(out, qBytes...)
	return out, h.ID16(), nil
}

// DecodeResponse parses a complete DNS response message. hooks may be nil.
func DecodeResponse(buf []byte, hooks *DecodeHooks) (*Response, error) {
	h, err := unmarshalHeader(buf)
	if err != nil {
		return nil, err
	}

	if hooks != nil && hooks.Header != nil {
		hooks.Header(h.ID16(), h.IsAA(), h.RCODE())
	}

	offset := headerSize
	var question Question
	for i := 0; i < int(h.QDCOUNT16()); i++ {
		q, next, err := decodeQuestion(buf, offset)
		if err != nil {
			return nil, fmt.Errorf("dnsmsg: decoding question %d: %w", i, err)
		}
		if i == 0 {
			question = q
		}
		offset = next
	}

	if hooks != nil && hooks.Answers != nil {
		hooks.Answers(int(h.ANCOUNT16()))
	}
	answers, offset, err := decodeRRSection(buf, offset, int(h.ANCOUNT16()), hooks)
	if err != nil {
		return nil, fmt.Errorf("dnsmsg: decoding answer section: %w", err)
	}

	if hooks != nil && hooks.Nameservers != nil {
		hooks.Nameservers(int(h.NSCOUNT16()))
	}
	authority, offset, err := decodeRRSection(buf, offset, int(h.NSCOUNT16()), hooks)
	if err != nil {
		return nil, fmt.Errorf("dnsmsg: decoding authority section: %w", err)
	}

	if hooks != nil && hooks.Additional != nil {
		hooks.Additional(int(h.ARCOUNT16()))
	}
	additional, _, err := decodeRRSection(buf, offset, int(h.ARCOUNT16()), hooks)
	if err != nil {
		return nil, fmt.Errorf("dnsmsg: decoding additional section: %w", err)
	}

	return &Response{
		ID:            h.ID16(),
		Authoritative: h.IsAA(),
		RCODE:         h.RCODE(),
		Question:      question,
		Answers:       answers,
		Authority:     authority,
		Additional:    additional,
	}, nil
}

// EncodeResponse builds a complete response message byte-for-byte: the
// mirror image of DecodeResponse. Nothing in the resolver itself sends
// responses, but a fake nameserver (for tests, or for any future
// server-side use of this codec) needs to speak the wire format without
// going through a real one.
func EncodeResponse(id uint16, authoritative bool, rcode ResponseCode, question Question, answers, authority, additional []ResourceRecord) ([]byte, error) {
	var h Header
	h.SetID16(id)
	h.SetQR(true)
	h.SetAA(authoritative)
	h.SetRCODE(rcode)
	if err := h.SetQDCOUNT(1); err != nil {
		return nil, err
	}
	if err := h.SetANCOUNT(len(answers)); err != nil {
		return nil, err
	}
	if err := h.SetNSCOUNT(len(authority)); err != nil {
		return nil, err
	}
	if err := h.SetARCOUNT(len(additional)); err != nil {
		return nil, err
	}

	qBytes, err := question.marshal()
	if err != nil {
		return nil, fmt.Errorf("dnsmsg: encoding question: %w", err)
	}

	out := append([]byte{}, h.marshal()...)
	out = append(out, qBytes...)
	for _, section := range [][]ResourceRecord{answers, authority, additional} {
		for _, rr := range section {
			rrBytes, err := rr.marshal()
			if err != nil {
				return nil, fmt.Errorf("dnsmsg: encoding record %s: %w", rr.Question.Name, err)
			}
			out = append(out, rrBytes...)
		}
	}
	return out, nil
}

// decodeRRSection decodes count records starting at offset. A record whose
// RDATA can't be interpreted for its type is dropped but still advances
// the cursor by its full RDLENGTH; a structurally malformed record (bad
// name, truncated header) fails the whole section, which the caller
// treats as a malformed response to be retried.
func decodeRRSection(buf []byte, offset, count int, hooks *DecodeHooks) ([]ResourceRecord, int, error) {
	out := make([]ResourceRecord, 0, count)
	for i := 0; i < count; i++ {
		rr, next, ok, err := decodeRR(buf, offset)
		if err != nil {
			return nil, 0, err
		}
		offset = next
		if !ok {
			continue
		}
		if hooks != nil && hooks.Record != nil {
			hooks.Record(rr, int(rr.Question.Type), int(rr.Question.Class))
		}
		out = append(out, rr)
	}
	return out, offset, nil
}
