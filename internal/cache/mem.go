package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/blazskufca/iresolve/internal/dnsmsg"
)

type entry struct {
	record    dnsmsg.ResourceRecord
	expiresAt time.Time
	noExpire  bool
}

// MemCache is an in-process, TTL-expiring Cache implementation: an
// RWMutex-guarded map of Question to its records, with a background
// ticker sweeping expired entries and each record tracking its own
// expiry.
type MemCache struct {
	mu      sync.RWMutex
	records map[dnsmsg.Question][]entry
	logger  *slog.Logger
	stop    chan struct{}
	once    sync.Once
}

// NewMemCache creates an empty cache and starts its background cleanup
// goroutine. Call Close to stop it. If logger is nil, a discard logger is
// used.
func NewMemCache(logger *slog.Logger) *MemCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &MemCache{
		records: make(map[dnsmsg.Question][]entry),
		logger:  logger,
		stop:    make(chan struct{}),
	}
	// The root-hints question's slot exists from construction, even
	// before any root hint has been inserted.
	c.records[RootQuestion] = nil
	go c.periodicallyCleanup()
	return c
}

// Close stops the background cleanup goroutine.
func (c *MemCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemCache) periodicallyCleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *MemCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for q, entries := range c.records {
		if q == RootQuestion {
			continue
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.noExpire || e.expiresAt.After(now) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(c.records, q)
		} else {
			c.records[q] = kept
		}
	}
}

// GetValid implements Cache.
func (c *MemCache) GetValid(q dnsmsg.Question) []dnsmsg.ResourceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	var out []dnsmsg.ResourceRecord
	for _, e := range c.records[q] {
		if e.noExpire || e.expiresAt.After(now) {
			out = append(out, e.record)
		}
	}
	return out
}

// GetRaw implements Cache.
func (c *MemCache) GetRaw(q dnsmsg.Question) []dnsmsg.ResourceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]dnsmsg.ResourceRecord, 0, len(c.records[q]))
	for _, e := range c.records[q] {
		out = append(out, e.record)
	}
	return out
}

// Insert implements Cache. Re-inserting an (question, payload) pair already
// present refreshes its expiry in place instead of appending a duplicate.
// Records under RootQuestion never expire.
func (c *MemCache) Insert(rr dnsmsg.ResourceRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	noExpire := rr.Question == RootQuestion
	expiresAt := time.Now().Add(time.Duration(rr.TTL) * time.Second)

	entries := c.records[rr.Question]
	for i, e := range entries {
		if e.record.Equal(rr) {
			entries[i].expiresAt = expiresAt
			entries[i].noExpire = noExpire || e.noExpire
			entries[i].record.TTL = rr.TTL
			return
		}
	}

	c.logger.Debug("cache insert", slog.String("name", rr.Question.Name), slog.Any("type", rr.Question.Type))
	c.records[rr.Question] = append(entries, entry{record: rr, expiresAt: expiresAt, noExpire: noExpire})
}

// RootQuestion implements Cache.
func (c *MemCache) RootQuestion() dnsmsg.Question {
	return RootQuestion
}
