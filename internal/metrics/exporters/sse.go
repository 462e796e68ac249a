package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/ffdrive/internal/events"
	"github.com/smazurov/ffdrive/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter exports job metrics via Server-Sent Events.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	allMetrics := metrics.GetAllJobMetrics()
	for jobID, m := range allMetrics {
		s.eventBus.Publish(events.JobMetricsEvent{
			EventType:       "job_metrics",
			JobID:           jobID,
			FPS:             strconv.FormatFloat(m.FPS, 'f', 2, 64),
			Speed:           strconv.FormatFloat(m.Speed, 'f', 2, 64),
			DroppedFrames:   strconv.FormatInt(m.DroppedFrames, 10),
			DuplicateFrames: strconv.FormatInt(m.DuplicateFrames, 10),
		})
	}
}
