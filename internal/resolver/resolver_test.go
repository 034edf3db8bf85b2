package resolver

import (
	"net"
	"sync"
	"testing"

	"github.com/blazskufca/iresolve/internal/cache"
	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/dnstype"
	"github.com/blazskufca/iresolve/internal/tracer"
)

// recordingSink wraps tracer.Noop and records every QueryToSend event,
// since the resolver's end-to-end behavior is only observable from the
// outside through the number and content of datagrams sent.
type recordingSink struct {
	tracer.Noop
	mu   sync.Mutex
	sent []tracer.QueryToSendEvent
}

func (s *recordingSink) QueryToSend(e tracer.QueryToSendEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, e)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// startFakeServer runs a UDP echo-style nameserver that answers each
// incoming datagram with whatever respond returns (nil means "drop it").
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

// startRawServer is like startFakeServer but hands the handler direct
// access to the connection, so it can write more than one reply datagram
// per incoming query (needed to script a mismatched-transaction-ID reply
// followed by a correct one).
func startRawServer(t *testing.T, handle func(conn *net.UDPConn, from *net.UDPAddr, query []byte)) string {
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
			handle(conn, addr, buf[:n])
		}
	}()

	return conn.LocalAddr().String()
}

// txidOf reads the transaction ID off an outgoing query's wire bytes.
func txidOf(query []byte) uint16 {
	return uint16(query[0])<<8 | uint16(query[1])
}

// extractQName parses the single question's name out of a query's wire
// bytes. Outgoing queries never use compression (dnsmsg.EncodeQuery always
// writes uncompressed labels), so a plain length-prefixed walk suffices.
func extractQName(query []byte) string {
	const headerSize = 12
	var labels []string
	i := headerSize
	for {
		length := int(query[i])
		i++
		if length == 0 {
			break
		}
		labels = append(labels, string(query[i:i+length]))
		i += length
	}
	if len(labels) == 0 {
		return "."
	}
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += "."
		}
		out += l
	}
	return out
}

func mustEncodeResponse(t *testing.T, txid uint16, authoritative bool, rcode dnsmsg.ResponseCode, question dnsmsg.Question, answers, authority, additional []dnsmsg.ResourceRecord) []byte {
	t.Helper()
	buf, err := dnsmsg.EncodeResponse(txid, authoritative, rcode, question, answers, authority, additional)
	if err != nil {
		t.Fatalf("encoding scripted response: %v", err)
	}
	return buf
}

func newTestResolver(t *testing.T, server string, sink tracer.Sink) (*Resolver, *cache.MemCache) {
	t.Helper()
	c := cache.NewMemCache(nil)
	t.Cleanup(c.Close)
	if sink == nil {
		sink = tracer.Noop{}
	}
	r := &Resolver{cache: c, sink: sink, server: server}
	return r, c
}

// a cached answer is returned without sending anything.
func TestGetDirect_CachedHit(t *testing.T) {
	sink := &recordingSink{}
	r, c := newTestResolver(t, "", sink)

	q := dnsmsg.NewQuestion("cached.example.com", dnstype.A, dnsclass.IN)
	c.Insert(dnsmsg.ResourceRecord{Question: q, TTL: 300, Value: "1.2.3.4"})

	got := r.GetDirect(q)
	if len(got) != 1 || got[0].Value != "1.2.3.4" {
		t.Fatalf("expected cached A record, got %v", got)
	}
	if sink.count() != 0 {
		t.Fatalf("expected no datagrams sent for a cache hit, sent %d", sink.count())
	}
}

// a one-hop delegation (root -> authoritative, via cached glue) resolves
// the question and emits exactly two QueryToSend events.
func TestGetDirect_OneHopDelegation(t *testing.T) {
	q := dnsmsg.NewQuestion("example.com", dnstype.A, dnsclass.IN)
	nsName := "ns1.example.com"

	authServer := startFakeServer(t, func(query []byte) []byte {
		return mustEncodeResponse(t, txidOf(query), true, dnsmsg.NoError, q,
			[]dnsmsg.ResourceRecord{{Question: q, TTL: 300, Value: "5.6.7.8"}}, nil, nil)
	})
	_, authPort, err := net.SplitHostPort(authServer)
	if err != nil {
		t.Fatalf("split auth server addr: %v", err)
	}

	rootServer := startFakeServer(t, func(query []byte) []byte {
		nsRR := dnsmsg.ResourceRecord{Question: dnsmsg.NewQuestion(q.Name, dnstype.NS, dnsclass.IN), TTL: 300, Value: nsName}
		glueRR := dnsmsg.ResourceRecord{Question: dnsmsg.NewQuestion(nsName, dnstype.A, dnsclass.IN), TTL: 300, Value: "127.0.0.1"}
		return mustEncodeResponse(t, txidOf(query), false, dnsmsg.NoError, q, nil,
			[]dnsmsg.ResourceRecord{nsRR}, []dnsmsg.ResourceRecord{glueRR})
	})

	prevPort := dnsPort
	dnsPort = authPort
	t.Cleanup(func() { dnsPort = prevPort })

	sink := &recordingSink{}
	r, _ := newTestResolver(t, rootServer, sink)

	got := r.GetDirect(q)
	if len(got) != 1 || got[0].Value != "5.6.7.8" {
		t.Fatalf("expected delegated A record, got %v", got)
	}
	if sink.count() != 2 {
		t.Fatalf("expected 2 datagrams (root + authoritative), sent %d", sink.count())
	}
}

// GetRecursive follows a single CNAME hop and returns both records,
// CNAME first.
func TestGetRecursive_CNAMEChain(t *testing.T) {
	alias := dnsmsg.NewQuestion("alias.example.com", dnstype.A, dnsclass.IN)
	target := "target.example.com"
	targetQ := dnsmsg.NewQuestion(target, dnstype.A, dnsclass.IN)

	server := startFakeServer(t, func(query []byte) []byte {
		name := extractQName(query)
		switch name {
		case alias.Name:
			cnameRR := dnsmsg.ResourceRecord{Question: alias, TTL: 300, Value: target}
			return mustEncodeResponse(t, txidOf(query), true, dnsmsg.NoError, alias,
				[]dnsmsg.ResourceRecord{cnameRR}, nil, nil)
		case targetQ.Name:
			aRR := dnsmsg.ResourceRecord{Question: targetQ, TTL: 300, Value: "9.9.9.9"}
			return mustEncodeResponse(t, txidOf(query), true, dnsmsg.NoError, targetQ,
				[]dnsmsg.ResourceRecord{aRR}, nil, nil)
		default:
			return nil
		}
	})

	r, _ := newTestResolver(t, server, nil)

	got, err := r.GetRecursive(alias, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected CNAME + A, got %d records: %v", len(got), got)
	}
	if got[0].Question.Type != dnstype.CNAME || got[0].Value != target {
		t.Fatalf("expected first record to be the CNAME, got %v", got[0])
	}
	if got[1].Question.Type != dnstype.A || got[1].Value != "9.9.9.9" {
		t.Fatalf("expected second record to be the resolved A, got %v", got[1])
	}
}

// the first two datagrams are dropped; the third is answered. Exactly
// three QueryToSend events fire for the one lookup.
func TestGetDirect_RetryOnLoss(t *testing.T) {
	q := dnsmsg.NewQuestion("retry.example.com", dnstype.A, dnsclass.IN)

	var attempts int
	var mu sync.Mutex
	server := startFakeServer(t, func(query []byte) []byte {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return nil // drop
		}
		return mustEncodeResponse(t, txidOf(query), true, dnsmsg.NoError, q,
			[]dnsmsg.ResourceRecord{{Question: q, TTL: 300, Value: "10.0.0.1"}}, nil, nil)
	})

	sink := &recordingSink{}
	r, _ := newTestResolver(t, server, sink)

	got := r.GetDirect(q)
	if len(got) != 1 || got[0].Value != "10.0.0.1" {
		t.Fatalf("expected answer to survive two dropped datagrams, got %v", got)
	}
	if sink.count() != 3 {
		t.Fatalf("expected exactly 3 QueryToSend events, got %d", sink.count())
	}
}

// a reply carrying the wrong transaction ID is ignored; the subsequent
// correctly-tagged reply is used instead.
func TestGetDirect_IgnoresMismatchedTxid(t *testing.T) {
	q := dnsmsg.NewQuestion("mismatch.example.com", dnstype.A, dnsclass.IN)

	server := startRawServer(t, func(conn *net.UDPConn, from *net.UDPAddr, query []byte) {
		txid := txidOf(query)
		wrong := mustEncodeResponse(t, txid+1, true, dnsmsg.NoError, q,
			[]dnsmsg.ResourceRecord{{Question: q, TTL: 300, Value: "0.0.0.0"}}, nil, nil)
		_, _ = conn.WriteToUDP(wrong, from)

		right := mustEncodeResponse(t, txid, true, dnsmsg.NoError, q,
			[]dnsmsg.ResourceRecord{{Question: q, TTL: 300, Value: "172.16.0.1"}}, nil, nil)
		_, _ = conn.WriteToUDP(right, from)
	})

	r, _ := newTestResolver(t, server, nil)

	got := r.GetDirect(q)
	if len(got) != 1 || got[0].Value != "172.16.0.1" {
		t.Fatalf("expected the correctly-tagged reply to win, got %v", got)
	}
}

// an 11-hop CNAME chain against a max depth of 10 stops expanding at the
// budget instead of erroring; the 11th (final) link is never queried,
// and every hop up to the budget is cached.
func TestGetRecursive_DepthExhaustion(t *testing.T) {
	const cnameHops = 11 // names[0] -> names[1] -> ... -> names[10], each a CNAME
	names := make([]string, cnameHops+1)
	for i := range names {
		names[i] = fqdnAt(i)
	}

	server := startFakeServer(t, func(query []byte) []byte {
		name := extractQName(query)
		for i := 0; i < cnameHops; i++ {
			q := dnsmsg.NewQuestion(names[i], dnstype.A, dnsclass.IN)
			if q.Name != name {
				continue
			}
			rr := dnsmsg.ResourceRecord{Question: q, TTL: 300, Value: names[i+1]}
			return mustEncodeResponse(t, txidOf(query), true, dnsmsg.NoError, q,
				[]dnsmsg.ResourceRecord{rr}, nil, nil)
		}
		// names[cnameHops] would resolve to a plain A record, but the
		// budget should never let it be queried.
		return nil
	})

	r, c := newTestResolver(t, server, nil)

	start := dnsmsg.NewQuestion(names[0], dnstype.A, dnsclass.IN)
	got, err := r.GetRecursive(start, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != cnameHops {
		t.Fatalf("expected %d CNAME records (budget exhausted before the final link), got %d: %v", cnameHops, len(got), got)
	}
	for i := 0; i < cnameHops; i++ {
		q := dnsmsg.NewQuestion(names[i], dnstype.A, dnsclass.IN)
		if valid := c.GetValid(q); len(valid) == 0 {
			t.Fatalf("expected %s to be cached", names[i])
		}
	}
	if valid := c.GetValid(dnsmsg.NewQuestion(names[cnameHops], dnstype.A, dnsclass.IN)); len(valid) != 0 {
		t.Fatalf("final link beyond the budget should never have been queried")
	}
}

func fqdnAt(i int) string {
	letters := "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i]) + ".chain.example.com"
}

// GetRecursive with a negative depth never sends a query.
func TestGetRecursive_NegativeDepthRejected(t *testing.T) {
	sink := &recordingSink{}
	r, _ := newTestResolver(t, "", sink)

	q := dnsmsg.NewQuestion("anything.example.com", dnstype.A, dnsclass.IN)
	_, err := r.GetRecursive(q, -1)
	if err != ErrDepthExceeded {
		t.Fatalf("expected ErrDepthExceeded, got %v", err)
	}
	if sink.count() != 0 {
		t.Fatalf("expected no datagrams sent, sent %d", sink.count())
	}
}
