package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/ffdrive/internal/events"
	"github.com/smazurov/ffdrive/internal/logging"
)

// logStreamBuffer sizes the per-connection channel. Logs burst during
// job startup, so this is larger than the job event stream's buffer.
const logStreamBuffer = 100

// registerLogRoutes registers the log tail endpoint. A new subscriber
// gets the retained ring buffer replayed first, then live entries.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		if !replayLogHistory(send) {
			return
		}

		eventCh := make(chan any, logStreamBuffer)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// replayLogHistory sends every retained entry to a fresh subscriber.
// Returns false when the client went away mid-replay.
func replayLogHistory(send sse.Sender) bool {
	buffer := logging.GetBuffer()
	if buffer == nil {
		return true
	}
	for _, entry := range buffer.ReadAll() {
		event := events.LogEntryEvent{
			Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
			Level:      entry.Level,
			Module:     entry.Module,
			Message:    entry.Message,
			Attributes: entry.Attributes,
		}
		if err := send.Data(event); err != nil {
			return false
		}
	}
	return true
}
