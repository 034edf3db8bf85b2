// Package cache implements a question-keyed store of resource records that
// honors TTL expiry on read. The resolver core only ever talks to the
// Cache interface; MemCache and RedisCache are two interchangeable
// collaborators satisfying it.
package cache

import (
	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/dnstype"
)

// RootQuestion is the canonical question whose cached result is the root
// zone's NS set. It never expires regardless of the TTL it was inserted
// with.
var RootQuestion = dnsmsg.Question{Name: ".", Type: dnstype.NS, Class: dnsclass.IN}

// Cache is the interface the resolver core consumes.
type Cache interface {
	// GetValid returns the ordered records for q whose TTL has not
	// elapsed. It never mutates the cache and never returns expired
	// records.
	GetValid(q dnsmsg.Question) []dnsmsg.ResourceRecord
	// GetRaw returns all cached records for q regardless of TTL, for root
	// hint bootstrap.
	GetRaw(q dnsmsg.Question) []dnsmsg.ResourceRecord
	// Insert adds or refreshes rr. Re-inserting an equal (question,
	// payload) pair refreshes its expiry in place rather than
	// duplicating it.
	Insert(rr dnsmsg.ResourceRecord)
	// RootQuestion returns the canonical root-hints question.
	RootQuestion() dnsmsg.Question
}
