package adminapi

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/blazskufca/iresolve/internal/cache"
	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/dnstype"
)

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := cache.NewMemCache(nil)
	defer c.Close()
	srv := New("127.0.0.1:0", slog.New(slog.DiscardHandler), NewHandlers(c, nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRootHints_ReflectsCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := cache.NewMemCache(nil)
	defer c.Close()
	c.Insert(dnsmsg.ResourceRecord{Question: cache.RootQuestion, TTL: 300, Value: "a.root-servers.net"})
	c.Insert(dnsmsg.ResourceRecord{Question: dnsmsg.NewQuestion("a.root-servers.net", dnstype.A, dnsclass.IN), TTL: 300, Value: "198.41.0.4"})

	srv := New("127.0.0.1:0", nil, NewHandlers(c, nil))

	req := httptest.NewRequest(http.MethodGet, "/roothints", nil)
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a.root-servers.net")
	assert.Contains(t, w.Body.String(), "198.41.0.4")
}

func TestLookup_NoResolverConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := cache.NewMemCache(nil)
	defer c.Close()
	srv := New("127.0.0.1:0", nil, NewHandlers(c, nil))

	req := httptest.NewRequest(http.MethodGet, "/lookup?name=example.com", nil)
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
