package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/blazskufca/iresolve/internal/dnsmsg"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCache(client), mr
}

func TestRedisCache_InsertThenGetValid(t *testing.T) {
	c, _ := newTestRedisCache(t)

	q := testQuestion("example.com")
	c.Insert(dnsmsg.ResourceRecord{Question: q, TTL: 300, Value: "93.184.216.34"})

	got := c.GetValid(q)
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	if got[0].Value != "93.184.216.34" {
		t.Fatalf("unexpected value: %s", got[0].Value)
	}
}

func TestRedisCache_Expiration(t *testing.T) {
	c, mr := newTestRedisCache(t)

	q := testQuestion("short-ttl.example.com")
	c.Insert(dnsmsg.ResourceRecord{Question: q, TTL: 1, Value: "1.2.3.4"})

	mr.FastForward(2 * time.Second)

	if got := c.GetValid(q); len(got) != 0 {
		t.Fatalf("expected miss after expiration, got %v", got)
	}
}

func TestRedisCache_ReinsertRefreshesWithoutDuplicating(t *testing.T) {
	c, _ := newTestRedisCache(t)

	q := testQuestion("example.com")
	c.Insert(dnsmsg.ResourceRecord{Question: q, TTL: 300, Value: "1.2.3.4"})
	c.Insert(dnsmsg.ResourceRecord{Question: q, TTL: 600, Value: "1.2.3.4"})

	got := c.GetValid(q)
	if len(got) != 1 {
		t.Fatalf("expected a single deduplicated record, got %d", len(got))
	}
	if got[0].TTL != 600 {
		t.Fatalf("expected refreshed TTL 600, got %d", got[0].TTL)
	}
}

func TestRedisCache_RootQuestionNeverExpires(t *testing.T) {
	c, mr := newTestRedisCache(t)

	c.Insert(dnsmsg.ResourceRecord{Question: RootQuestion, TTL: 1, Value: "a.root-servers.net"})
	mr.FastForward(10 * time.Hour)

	if got := c.GetValid(RootQuestion); len(got) != 1 {
		t.Fatalf("expected root hint to survive, got %v", got)
	}
}
