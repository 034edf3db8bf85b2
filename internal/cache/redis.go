package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blazskufca/iresolve/internal/dnsmsg"
)

// RedisCache is a Cache backed by Redis, grounded on poyrazK-cloudDNS's
// internal/dns/server/redis.go (a thin *redis.Client wrapper keying
// everything under a "dns:" prefix and leaning on Redis's own key TTL
// instead of tracking expiry itself). Unlike MemCache, RedisCache has no
// per-record expiry: the whole record set for a Question shares one Redis
// key, whose TTL is refreshed to the longest TTL among the records it
// holds whenever a new one is inserted.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// storedRecord is the JSON-on-the-wire shape for one cached record.
type storedRecord struct {
	TTL   uint32 `json:"ttl"`
	Value string `json:"value"`
}

// NewRedisCache wraps an existing *redis.Client. The caller owns the
// client's lifecycle (pooling, auth, TLS); RedisCache only issues commands
// against it.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, ctx: context.Background()}
}

func questionKey(q dnsmsg.Question) string {
	return fmt.Sprintf("dns:%s:%s:%s", q.Name, q.Type, q.Class)
}

// GetValid implements Cache. Redis's own expiry already guarantees every
// record under the key is within its coarsened TTL window, so this is
// equivalent to GetRaw for this collaborator.
func (r *RedisCache) GetValid(q dnsmsg.Question) []dnsmsg.ResourceRecord {
	return r.GetRaw(q)
}

// GetRaw implements Cache.
func (r *RedisCache) GetRaw(q dnsmsg.Question) []dnsmsg.ResourceRecord {
	raw, err := r.client.Get(r.ctx, questionKey(q)).Bytes()
	if err != nil {
		return nil
	}
	var stored []storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil
	}
	out := make([]dnsmsg.ResourceRecord, 0, len(stored))
	for _, s := range stored {
		out = append(out, dnsmsg.ResourceRecord{Question: q, TTL: s.TTL, Value: s.Value})
	}
	return out
}

// Insert implements Cache.
func (r *RedisCache) Insert(rr dnsmsg.ResourceRecord) {
	key := questionKey(rr.Question)
	existing := r.GetRaw(rr.Question)

	replaced := false
	for i, e := range existing {
		if e.Equal(rr) {
			existing[i].TTL = rr.TTL
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, rr)
	}

	stored := make([]storedRecord, 0, len(existing))
	ttl := rr.TTL
	for _, e := range existing {
		stored = append(stored, storedRecord{TTL: e.TTL, Value: e.Value})
		if e.TTL > ttl {
			ttl = e.TTL
		}
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return
	}

	if rr.Question == RootQuestion {
		r.client.Set(r.ctx, key, payload, 0)
		return
	}
	r.client.Set(r.ctx, key, payload, time.Duration(ttl)*time.Second)
}

// RootQuestion implements Cache.
func (r *RedisCache) RootQuestion() dnsmsg.Question {
	return RootQuestion
}
