package tracer

import "log/slog"

// SlogSink reports every event to a *slog.Logger with structured
// attributes (slog.String/slog.Any/slog.Int), at Debug level throughout —
// these events are per-datagram and per-record chatter, not milestones an
// operator watches by default.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink wraps logger. If logger is nil, slog.Default() is used.
func NewSlogSink(logger *slog.Logger) SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogSink{Logger: logger}
}

func (s SlogSink) QueryToSend(e QueryToSendEvent) {
	s.Logger.Debug("query-to-send",
		slog.String("query_id", e.QueryID.String()),
		slog.String("name", e.Question.Name),
		slog.Any("type", e.Question.Type),
		slog.String("server", e.Server),
		slog.Any("txid", e.Txid))
}

func (s SlogSink) ResponseHeader(e ResponseHeaderEvent) {
	s.Logger.Debug("response-header",
		slog.String("query_id", e.QueryID.String()),
		slog.Any("txid", e.Txid),
		slog.Bool("authoritative", e.Authoritative),
		slog.Any("rcode", e.RCODE))
}

func (s SlogSink) AnswersHeader(e SectionHeaderEvent) {
	s.Logger.Debug("answers-header", slog.String("query_id", e.QueryID.String()), slog.Int("count", e.Count))
}

func (s SlogSink) NameserversHeader(e SectionHeaderEvent) {
	s.Logger.Debug("nameservers-header", slog.String("query_id", e.QueryID.String()), slog.Int("count", e.Count))
}

func (s SlogSink) AdditionalHeader(e SectionHeaderEvent) {
	s.Logger.Debug("additional-header", slog.String("query_id", e.QueryID.String()), slog.Int("count", e.Count))
}

func (s SlogSink) ResourceRecord(e RecordEvent) {
	s.Logger.Debug("resource-record",
		slog.String("query_id", e.QueryID.String()),
		slog.String("name", e.Record.Question.Name),
		slog.Int("type", e.TypeCode),
		slog.Int("class", e.ClassCode),
		slog.String("value", e.Record.Value))
}
