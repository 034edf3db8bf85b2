// Command iresolve-admin runs a resolver alongside a read-only HTTP status
// surface (health, process stats, cached root hints, and on-demand
// lookups), for deployments that want to observe a long-lived resolver
// process rather than shell out to cmd/iresolve per query.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blazskufca/iresolve/internal/adminapi"
	"github.com/blazskufca/iresolve/internal/cache"
	"github.com/blazskufca/iresolve/internal/resolver"
	"github.com/blazskufca/iresolve/internal/roothints"
	"github.com/blazskufca/iresolve/internal/tracer"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8053", "admin HTTP listen address")
	initialServer := flag.String("server", "root", `initial resolver server: "root", "random", or a host/IP`)
	hintsDB := flag.String("hints-db", "", "optional sqlite database of root hints (defaults to the built-in list)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	c := cache.NewMemCache(logger)
	defer c.Close()

	var hints []roothints.Hint
	if *hintsDB != "" {
		store, err := roothints.Open(*hintsDB)
		if err != nil {
			log.Fatalln(err)
		}
		defer store.Close()
		hints, err = store.Load()
		if err != nil {
			log.Fatalln(err)
		}
	}
	roothints.Seed(c, hints)

	r, err := resolver.New(*initialServer, c, resolver.WithSink(tracer.NewSlogSink(logger)))
	if err != nil {
		log.Fatalln(err)
	}
	defer r.Close()

	srv := adminapi.New(*addr, logger, adminapi.NewHandlers(c, r))

	go func() {
		logger.Info("admin http listening", slog.String("addr", srv.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalln(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("admin http shutdown", slog.Any("error", err))
	}
}
