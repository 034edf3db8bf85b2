package adminapi

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/blazskufca/iresolve/internal/cache"
	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/dnstype"
	"github.com/blazskufca/iresolve/internal/resolver"
)

// Handlers holds the read-only collaborators the admin surface reports on:
// the shared cache (for inspection) and, optionally, a resolver (for
// on-demand lookups). Neither is mutated by any handler here beyond the
// ordinary caching side effect of performing a lookup.
type Handlers struct {
	startTime time.Time
	cache     cache.Cache
	resolver  *resolver.Resolver
}

// NewHandlers builds the admin handlers. r may be nil, in which case the
// lookup endpoint reports http.StatusServiceUnavailable.
func NewHandlers(c cache.Cache, r *resolver.Resolver) *Handlers {
	return &Handlers{startTime: time.Now(), cache: c, resolver: r}
}

type statusResponse struct {
	Status string `json:"status"`
}

// Health reports liveness only, the way jroosing-HydraDNS's /health does.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{Status: "ok"})
}

type statsResponse struct {
	UptimeSeconds int64   `json:"uptime_seconds"`
	NumGoroutine  int     `json:"num_goroutine"`
	RSSMB         float64 `json:"rss_mb"`
	SystemMemUsed float64 `json:"system_mem_used_percent"`
}

// Stats reports uptime, goroutine count, process RSS and system memory
// use (the last two via gopsutil), the way jroosing-HydraDNS's /stats
// endpoint samples runtime and system metrics.
func (h *Handlers) Stats(c *gin.Context) {
	resp := statsResponse{
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		NumGoroutine:  runtime.NumGoroutine(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil && mi != nil {
			resp.RSSMB = float64(mi.RSS) / 1024 / 1024
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.SystemMemUsed = vm.UsedPercent
	}

	c.JSON(http.StatusOK, resp)
}

// RootHints dumps the cached root zone NS set and its glue, for diagnosing
// a resolver that can't reach the root.
func (h *Handlers) RootHints(c *gin.Context) {
	q := h.cache.RootQuestion()
	ns := h.cache.GetValid(q)

	type hint struct {
		Name string `json:"name"`
		IP   string `json:"ip,omitempty"`
	}
	hints := make([]hint, 0, len(ns))
	for _, rr := range ns {
		hintEntry := hint{Name: rr.Value}
		glueQ := dnsmsg.NewQuestion(rr.Value, dnstype.A, dnsclass.IN)
		if glue := h.cache.GetValid(glueQ); len(glue) > 0 {
			hintEntry.IP = glue[0].Value
		}
		hints = append(hints, hintEntry)
	}
	c.JSON(http.StatusOK, hints)
}

// Lookup performs a read-through cache lookup for ?name=&type=, without
// following CNAMEs (the admin surface is diagnostic, not a stand-in for
// the library's get_recursive entry point).
func (h *Handlers) Lookup(c *gin.Context) {
	if h.resolver == nil {
		c.JSON(http.StatusServiceUnavailable, statusResponse{Status: "resolver not configured"})
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, statusResponse{Status: "missing name query parameter"})
		return
	}
	qType, err := dnstype.ParseType(c.DefaultQuery("type", "A"))
	if err != nil {
		c.JSON(http.StatusBadRequest, statusResponse{Status: err.Error()})
		return
	}

	q := dnsmsg.NewQuestion(name, qType, dnsclass.IN)
	c.JSON(http.StatusOK, h.resolver.GetDirect(q))
}
