// Package resolver implements the iterative resolver and its
// CNAME-following wrapper, grounded on
// app/DNS.go:resolveRecursively/resolveNameserverRecursively's NS-set
// walking, glue preference, and delegation loop shape, restructured around
// explicit Cache/Sink collaborators instead of a baked-in *DNSCache field
// and upstream-forwarding fallback.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"

	"github.com/google/uuid"

	"github.com/blazskufca/iresolve/internal/cache"
	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/dnstype"
	"github.com/blazskufca/iresolve/internal/roothints"
	"github.com/blazskufca/iresolve/internal/tracer"
	"github.com/blazskufca/iresolve/internal/transport"
)

// ErrDepthExceeded is returned when a caller invokes GetRecursive with a
// negative depth budget, without issuing any queries.
var ErrDepthExceeded = errors.New("resolver: cname indirection budget exceeded")

// dnsPort is a var, not a const, so package tests can point delegation
// hops at an unprivileged fake-server port instead of the real 53.
var dnsPort = "53"

// Resolver is the C4/C5 core: given a Cache, a root-hint-seeded bootstrap
// server, and an optional tracer.Sink, it answers direct and
// CNAME-following lookups by walking NS delegations starting from its
// current server.
type Resolver struct {
	cache  cache.Cache
	sink   tracer.Sink
	server string // "ip:53", the current bootstrap/current server
	closed bool
}

// Option configures a Resolver at construction, following the same
// functional-options shape as onoffswitchrespiratorycenter178-beacon's
// querier.Option (querier/options.go).
type Option func(*Resolver)

// WithSink overrides the default no-op tracer.Sink.
func WithSink(sink tracer.Sink) Option {
	return func(r *Resolver) { r.sink = sink }
}

// New constructs a Resolver, resolving initialServer to a bootstrap
// address: "" or "root" picks the first cached root hint, "random" picks
// one at random, anything else is resolved as a host name or IP via the
// OS. c must already contain root hints for "root" and "random" to
// succeed — see roothints.Seed.
func New(initialServer string, c cache.Cache, opts ...Option) (*Resolver, error) {
	r := &Resolver{cache: c, sink: tracer.Noop{}}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.SetInitialServer(initialServer); err != nil {
		return nil, err
	}
	return r, nil
}

// SetInitialServer updates the resolver's current server.
func (r *Resolver) SetInitialServer(host string) error {
	switch host {
	case "", "root":
		ip, err := r.pickRootGlue(firstHint)
		if err != nil {
			return err
		}
		r.server = net.JoinHostPort(ip, dnsPort)
		return nil
	case "random":
		ip, err := r.pickRootGlue(randomHint)
		if err != nil {
			return err
		}
		r.server = net.JoinHostPort(ip, dnsPort)
		return nil
	default:
		ip, err := resolveHost(host)
		if err != nil {
			return err
		}
		r.server = net.JoinHostPort(ip, dnsPort)
		return nil
	}
}

type hintPicker func(hints []dnsmsg.ResourceRecord) dnsmsg.ResourceRecord

func firstHint(hints []dnsmsg.ResourceRecord) dnsmsg.ResourceRecord { return hints[0] }

func randomHint(hints []dnsmsg.ResourceRecord) dnsmsg.ResourceRecord {
	return hints[rand.IntN(len(hints))]
}

// pickRootGlue selects a root nameserver name via pick, then returns its
// already-cached glue A address.
func (r *Resolver) pickRootGlue(pick hintPicker) (string, error) {
	ns := r.cache.GetRaw(r.cache.RootQuestion())
	if len(ns) == 0 {
		return "", fmt.Errorf("%w: no root hints seeded in cache", roothints.ErrUnknownHost)
	}
	chosen := pick(ns)
	glueQ := dnsmsg.NewQuestion(chosen.Value, dnstype.A, dnsclass.IN)
	glue := r.cache.GetRaw(glueQ)
	if len(glue) == 0 {
		return "", fmt.Errorf("%w: no glue address cached for root hint %s", roothints.ErrUnknownHost, chosen.Value)
	}
	return glue[0].Value, nil
}

// resolveHost resolves host (a literal IP or a name) the way the OS would.
func resolveHost(host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}
	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		return "", fmt.Errorf("%w: %s", roothints.ErrUnknownHost, host)
	}
	return addrs[0], nil
}

// Close releases resources owned by the resolver. Every exchange opens and
// closes its own UDP socket (internal/transport), so there is nothing to
// release today; Close exists to give the resolver a scoped-resource
// lifecycle callers can rely on even as that changes.
func (r *Resolver) Close() error {
	r.closed = true
	return nil
}

// GetDirect resolves q without following any CNAME it turns up: a cache
// hit returns immediately; otherwise one iterative delegation walk is
// performed and the cache is re-read.
func (r *Resolver) GetDirect(q dnsmsg.Question) []dnsmsg.ResourceRecord {
	if valid := r.cache.GetValid(q); len(valid) > 0 {
		return valid
	}
	if r.closed || r.server == "" {
		return nil
	}
	r.iterativeQuery(context.Background(), tracer.NewQueryID(), q, r.server)
	return r.cache.GetValid(q)
}

// iterativeQuery queries server for q, follows NS delegations that carry
// already-cached glue, and stops once q itself has a cached answer or no
// further delegation can be followed.
func (r *Resolver) iterativeQuery(ctx context.Context, queryID uuid.UUID, q dnsmsg.Question, server string) {
	queryBytes, txid, err := dnsmsg.EncodeQuery(q)
	if err != nil {
		return
	}

	respBytes, err := transport.Exchange(ctx, r.sink, queryID, q, server, queryBytes, txid)
	if err != nil {
		return // transport failure is silent; caller observes an empty cache
	}

	resp, err := dnsmsg.DecodeResponse(respBytes, r.hooksFor(queryID))
	if err != nil {
		return // malformed response: same silent-failure contract
	}

	for _, rr := range resp.Answers {
		r.cache.Insert(rr)
	}
	for _, rr := range resp.Authority {
		r.cache.Insert(rr)
	}
	for _, rr := range resp.Additional {
		r.cache.Insert(rr)
	}

	if valid := r.cache.GetValid(q); len(valid) > 0 {
		return
	}

	for _, ns := range resp.Authority {
		if ns.Question.Type != dnstype.NS {
			continue
		}
		glueQ := dnsmsg.NewQuestion(ns.Value, dnstype.A, q.Class)
		glue := r.cache.GetValid(glueQ)
		if len(glue) == 0 {
			continue
		}
		r.iterativeQuery(ctx, queryID, q, net.JoinHostPort(glue[0].Value, dnsPort))
		return
	}
	// No NS in the delegation has a cached glue address: terminate without
	// progress rather than side-resolve the NS name (see DESIGN.md).
}

// hooksFor adapts the resolver's tracer.Sink into the dnsmsg.DecodeHooks
// shape, tagging every event with queryID so a trace consumer can
// correlate one GetDirect walk (its retries and delegation hops). Each
// CNAME hop of GetRecursive is a separate walk with its own queryID.
func (r *Resolver) hooksFor(queryID uuid.UUID) *dnsmsg.DecodeHooks {
	return &dnsmsg.DecodeHooks{
		Header: func(id uint16, authoritative bool, rcode dnsmsg.ResponseCode) {
			r.sink.ResponseHeader(tracer.ResponseHeaderEvent{
				QueryID:       queryID,
				Txid:          id,
				Authoritative: authoritative,
				RCODE:         rcode,
			})
		},
		Answers: func(count int) {
			r.sink.AnswersHeader(tracer.SectionHeaderEvent{QueryID: queryID, Count: count})
		},
		Nameservers: func(count int) {
			r.sink.NameserversHeader(tracer.SectionHeaderEvent{QueryID: queryID, Count: count})
		},
		Additional: func(count int) {
			r.sink.AdditionalHeader(tracer.SectionHeaderEvent{QueryID: queryID, Count: count})
		},
		Record: func(rr dnsmsg.ResourceRecord, typ int, class int) {
			r.sink.ResourceRecord(tracer.RecordEvent{
				QueryID:   queryID,
				Record:    rr,
				TypeCode:  typ,
				ClassCode: class,
			})
		},
	}
}

// GetRecursive resolves q, following any CNAME it turns up until maxDepth
// indirections have been followed or a non-CNAME answer is reached. Only
// a caller-supplied negative depth ever surfaces ErrDepthExceeded; an
// internal CNAME expansion that would need a negative depth simply stops
// expanding instead of failing the whole call (see DESIGN.md).
func (r *Resolver) GetRecursive(q dnsmsg.Question, maxDepth int) ([]dnsmsg.ResourceRecord, error) {
	if maxDepth < 0 {
		return nil, ErrDepthExceeded
	}
	return r.resolveWithBudget(q, maxDepth), nil
}

func (r *Resolver) resolveWithBudget(q dnsmsg.Question, maxDepth int) []dnsmsg.ResourceRecord {
	direct := r.GetDirect(q)
	if len(direct) == 0 || q.Type == dnstype.CNAME || maxDepth == 0 {
		return direct
	}

	out := make([]dnsmsg.ResourceRecord, len(direct))
	copy(out, direct)
	for _, rr := range direct {
		if rr.Question.Type != dnstype.CNAME {
			continue
		}
		target := dnsmsg.NewQuestion(rr.Value, q.Type, q.Class)
		out = append(out, r.resolveWithBudget(target, maxDepth-1)...)
	}
	return out
}
