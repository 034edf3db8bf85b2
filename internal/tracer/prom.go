package tracer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink reports resolver activity as Prometheus metrics, the way
// poyrazK-cloudDNS instruments its resolution path. It is a pure observer
// like every other Sink: scraping it never feeds back into resolution
// decisions.
type PromSink struct {
	queriesSent   prometheus.Counter
	responses     prometheus.CounterVec
	recordsParsed *prometheus.CounterVec
}

// NewPromSink registers its metrics on reg and returns a ready Sink. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel tests.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	p := &PromSink{
		queriesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iresolve_queries_sent_total",
			Help: "DNS queries transmitted, including retries.",
		}),
		recordsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iresolve_records_parsed_total",
			Help: "Resource records successfully parsed from responses, by type code.",
		}, []string{"type"}),
	}
	responses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iresolve_responses_total",
		Help: "Responses received, by RCODE and authoritative flag.",
	}, []string{"rcode", "authoritative"})
	p.responses = *responses

	reg.MustRegister(p.queriesSent, responses, p.recordsParsed)
	return p
}

func (p *PromSink) QueryToSend(QueryToSendEvent) {
	p.queriesSent.Inc()
}

func (p *PromSink) ResponseHeader(e ResponseHeaderEvent) {
	p.responses.WithLabelValues(e.RCODE.String(), boolLabel(e.Authoritative)).Inc()
}

func (p *PromSink) AnswersHeader(SectionHeaderEvent)     {}
func (p *PromSink) NameserversHeader(SectionHeaderEvent) {}
func (p *PromSink) AdditionalHeader(SectionHeaderEvent)  {}

func (p *PromSink) ResourceRecord(e RecordEvent) {
	p.recordsParsed.WithLabelValues(e.Record.Question.Type.String()).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
