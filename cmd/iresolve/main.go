// Command iresolve is a thin CLI harness around internal/resolver. It is
// not part of the resolver's library surface — a shell or test driver is
// the expected caller.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/blazskufca/iresolve/internal/cache"
	"github.com/blazskufca/iresolve/internal/dnsclass"
	"github.com/blazskufca/iresolve/internal/dnsmsg"
	"github.com/blazskufca/iresolve/internal/dnstype"
	"github.com/blazskufca/iresolve/internal/resolver"
	"github.com/blazskufca/iresolve/internal/roothints"
	"github.com/blazskufca/iresolve/internal/tracer"
)

func main() {
	name := flag.String("name", "", "domain name to look up")
	typ := flag.String("type", "A", "record type (A, AAAA, NS, CNAME, MX, or TYPE<n>)")
	server := flag.String("server", "root", `initial server: "root", "random", or a host/IP`)
	recursive := flag.Bool("recursive", true, "follow CNAME chains (GetRecursive) instead of a single lookup (GetDirect)")
	maxDepth := flag.Int("max-depth", 10, "maximum CNAME indirection depth for -recursive")
	hintsDB := flag.String("hints-db", "", "optional sqlite database of root hints (defaults to the built-in list)")
	verbose := flag.Bool("v", false, "log resolution trace to stderr")
	flag.Parse()

	if *name == "" {
		log.Fatalln("Domain name is required. Use -name flag.")
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	qType, err := dnstype.ParseType(*typ)
	if err != nil {
		log.Fatalln(err)
	}

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

	sink := tracer.Multi{tracer.NewSlogSink(logger)}
	r, err := resolver.New(*server, c, resolver.WithSink(sink))
	if err != nil {
		log.Fatalln(err)
	}
	defer r.Close()

	q := dnsmsg.NewQuestion(*name, qType, dnsclass.IN)

	var records []dnsmsg.ResourceRecord
	if *recursive {
		records, err = r.GetRecursive(q, *maxDepth)
		if err != nil {
			log.Fatalln(err)
		}
	} else {
		records = r.GetDirect(q)
	}

	if len(records) == 0 {
		fmt.Printf("no records found for %s %s\n", q.Name, q.Type)
		os.Exit(1)
	}
	for _, rr := range records {
		fmt.Printf("%s\t%d\t%s\t%s\t%s\n", rr.Question.Name, rr.TTL, rr.Question.Class, rr.Question.Type, rr.Value)
	}
}
