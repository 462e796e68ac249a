// Package metrics provides Prometheus metrics for running transcode jobs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/ffdrive/internal/process"
)

var (
	jobFrame = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffdrive",
		Subsystem: "job",
		Name:      "frame",
		Help:      "Last encoded frame number",
	}, []string{"job_id"})

	jobFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffdrive",
		Subsystem: "job",
		Name:      "fps",
		Help:      "Current encoding FPS",
	}, []string{"job_id"})

	jobBitrate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffdrive",
		Subsystem: "job",
		Name:      "bitrate_kbps",
		Help:      "Current output bitrate in kbit/s",
	}, []string{"job_id"})

	jobOutputBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffdrive",
		Subsystem: "job",
		Name:      "output_bytes",
		Help:      "Total bytes written so far",
	}, []string{"job_id"})

	jobDroppedFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffdrive",
		Subsystem: "job",
		Name:      "dropped_frames_total",
		Help:      "Total dropped frames",
	}, []string{"job_id"})

	jobDuplicateFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffdrive",
		Subsystem: "job",
		Name:      "duplicate_frames_total",
		Help:      "Total duplicate frames",
	}, []string{"job_id"})

	jobSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ffdrive",
		Subsystem: "job",
		Name:      "processing_speed",
		Help:      "Processing speed multiplier relative to realtime",
	}, []string{"job_id"})

	// Local cache for SSE exporter access.
	jobCache   = make(map[string]*JobMetrics)
	jobCacheMu sync.RWMutex
)

// JobMetrics holds current metric values for a job.
type JobMetrics struct {
	Frame           int64
	FPS             float64
	Bitrate         float64
	OutputBytes     int64
	DroppedFrames   int64
	DuplicateFrames int64
	Speed           float64
}

// ObserveJobProgress records a progress snapshot for a job.
func ObserveJobProgress(jobID string, p process.Progress) {
	jobFrame.WithLabelValues(jobID).Set(float64(p.Frame))
	jobFPS.WithLabelValues(jobID).Set(p.FPS)
	jobBitrate.WithLabelValues(jobID).Set(p.Bitrate)
	jobOutputBytes.WithLabelValues(jobID).Set(float64(p.TotalSize))
	jobDroppedFrames.WithLabelValues(jobID).Set(float64(p.DropFrames))
	jobDuplicateFrames.WithLabelValues(jobID).Set(float64(p.DupFrames))
	jobSpeed.WithLabelValues(jobID).Set(p.Speed)

	jobCacheMu.Lock()
	jobCache[jobID] = &JobMetrics{
		Frame:           p.Frame,
		FPS:             p.FPS,
		Bitrate:         p.Bitrate,
		OutputBytes:     p.TotalSize,
		DroppedFrames:   p.DropFrames,
		DuplicateFrames: p.DupFrames,
		Speed:           p.Speed,
	}
	jobCacheMu.Unlock()
}

// DeleteJobMetrics removes all metrics for a job.
func DeleteJobMetrics(jobID string) {
	jobFrame.DeleteLabelValues(jobID)
	jobFPS.DeleteLabelValues(jobID)
	jobBitrate.DeleteLabelValues(jobID)
	jobOutputBytes.DeleteLabelValues(jobID)
	jobDroppedFrames.DeleteLabelValues(jobID)
	jobDuplicateFrames.DeleteLabelValues(jobID)
	jobSpeed.DeleteLabelValues(jobID)

	jobCacheMu.Lock()
	delete(jobCache, jobID)
	jobCacheMu.Unlock()
}

// GetJobMetrics returns current metric values for a job.
func GetJobMetrics(jobID string) *JobMetrics {
	jobCacheMu.RLock()
	defer jobCacheMu.RUnlock()
	if m, ok := jobCache[jobID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllJobMetrics returns metrics for all active jobs.
func GetAllJobMetrics() map[string]*JobMetrics {
	jobCacheMu.RLock()
	defer jobCacheMu.RUnlock()
	result := make(map[string]*JobMetrics, len(jobCache))
	for id, m := range jobCache {
		dup := *m
		result[id] = &dup
	}
	return result
}
