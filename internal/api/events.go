package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/ffdrive/internal/events"
)

// registerSSERoutes registers the job lifecycle event stream. One
// channel carries every event kind the bus publishes for jobs, typed
// for clients through Huma's SSE message map.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for job lifecycle, progress and media info",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"job-created":       events.JobCreatedEvent{},
		"job-started":       events.JobStartedEvent{},
		"job-state-changed": events.JobStateChangedEvent{},
		"job-progress":      events.JobProgressEvent{},
		"job-finished":      events.JobFinishedEvent{},
		"job-media-info":    events.JobMediaInfoEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.JobCreatedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobProgressEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobFinishedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobMediaInfoEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Synthetic first event so clients learn the stream is live
		// before any job does anything.
		if err := send.Data(events.JobCreatedEvent{
			JobID:     "system",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

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
