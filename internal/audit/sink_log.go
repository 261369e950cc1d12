package audit

import (
	"context"
	"log/slog"
)

// LogSink writes each event as one structured log line. It is the default
// sink when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		"action", string(event.Action),
		"subject", event.Subject,
		"kind", event.Kind,
		"entity_id", event.EntityID,
		"related_id", event.RelatedID,
		"request_id", event.RequestID,
		"client_ip", event.ClientIP,
	)
	return nil
}
