package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/ffdrive/internal/api/models"
	"github.com/smazurov/ffdrive/internal/config"
	"github.com/smazurov/ffdrive/internal/events"
	"github.com/smazurov/ffdrive/internal/metrics"
)

// registerJobRoutes registers all job-related endpoints
func (s *Server) registerJobRoutes() {
	// List configured jobs
	huma.Register(s.api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/jobs",
		Summary:     "List Jobs",
		Description: "Get all configured transcode jobs with their runtime states",
		Tags:        []string{"jobs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.JobListResponse, error) {
		all := s.store.GetJobs()
		apiJobs := make([]models.JobData, 0, len(all))
		for _, job := range all {
			apiJobs = append(apiJobs, s.configToAPIJob(job))
		}
		sort.Slice(apiJobs, func(i, j int) bool { return apiJobs[i].ID < apiJobs[j].ID })

		return &models.JobListResponse{
			Body: models.JobListData{
				Jobs:  apiJobs,
				Count: len(apiJobs),
			},
		}, nil
	})

	// Create new job
	huma.Register(s.api, huma.Operation{
		OperationID: "create-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs",
		Summary:     "Create Job",
		Description: "Register a new transcode job configuration",
		Tags:        []string{"jobs"},
		Errors:      []int{400, 401, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.JobRequest) (*models.JobResponse, error) {
		if _, exists := s.store.GetJob(input.Body.ID); exists {
			return nil, huma.Error409Conflict("job already exists")
		}

		job := requestToConfig(input.Body)
		if err := s.store.AddJob(job); err != nil {
			return nil, huma.Error400BadRequest("invalid job configuration", err)
		}

		created, _ := s.store.GetJob(job.ID)
		if s.eventBus != nil {
			s.eventBus.Publish(events.JobCreatedEvent{
				JobID:     created.ID,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}
		return &models.JobResponse{Body: s.configToAPIJob(created)}, nil
	})

	// Get specific job
	huma.Register(s.api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{job_id}",
		Summary:     "Get Job",
		Description: "Get the configuration and runtime state of a job",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobResponse, error) {
		job, ok := s.store.GetJob(input.JobID)
		if !ok {
			return nil, huma.Error404NotFound("job not found")
		}
		return &models.JobResponse{Body: s.configToAPIJob(job)}, nil
	})

	// Update job configuration
	huma.Register(s.api, huma.Operation{
		OperationID: "update-job",
		Method:      http.MethodPut,
		Path:        "/api/jobs/{job_id}",
		Summary:     "Update Job",
		Description: "Replace a job's configuration. A running job keeps its old configuration until restarted.",
		Tags:        []string{"jobs"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		JobID string `path:"job_id" example:"job-001" doc:"Job identifier"`
		Body  models.JobRequestData
	}) (*models.JobResponse, error) {
		if _, ok := s.store.GetJob(input.JobID); !ok {
			return nil, huma.Error404NotFound("job not found")
		}

		if err := s.store.UpdateJob(input.JobID, requestToConfig(input.Body)); err != nil {
			return nil, huma.Error400BadRequest("invalid job configuration", err)
		}

		updated, _ := s.store.GetJob(input.JobID)
		return &models.JobResponse{Body: s.configToAPIJob(updated)}, nil
	})

	// Delete job
	huma.Register(s.api, huma.Operation{
		OperationID: "delete-job",
		Method:      http.MethodDelete,
		Path:        "/api/jobs/{job_id}",
		Summary:     "Delete Job",
		Description: "Stop a job if running and remove its configuration",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*struct{}, error) {
		if _, ok := s.store.GetJob(input.JobID); !ok {
			return nil, huma.Error404NotFound("job not found")
		}

		if s.manager.IsRunning(input.JobID) {
			if err := s.manager.Stop(input.JobID); err != nil {
				return nil, huma.Error500InternalServerError("failed to stop job", err)
			}
		}

		if err := s.store.RemoveJob(input.JobID); err != nil {
			return nil, huma.Error404NotFound("job not found", err)
		}

		return &struct{}{}, nil
	})

	// Start job
	huma.Register(s.api, huma.Operation{
		OperationID: "start-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{job_id}/start",
		Summary:     "Start Job",
		Description: "Spawn the job's FFmpeg process",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobStatusResponse, error) {
		if _, ok := s.store.GetJob(input.JobID); !ok {
			return nil, huma.Error404NotFound("job not found")
		}
		if err := s.manager.Start(input.JobID); err != nil {
			return nil, huma.Error409Conflict(err.Error())
		}
		return s.statusResponse(input.JobID), nil
	})

	// Stop job
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{job_id}/stop",
		Summary:     "Stop Job",
		Description: "Gracefully stop the job's FFmpeg process",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobStatusResponse, error) {
		if _, ok := s.store.GetJob(input.JobID); !ok {
			return nil, huma.Error404NotFound("job not found")
		}
		if err := s.manager.Stop(input.JobID); err != nil {
			return nil, huma.Error500InternalServerError("failed to stop job", err)
		}
		return s.statusResponse(input.JobID), nil
	})

	// Restart job
	huma.Register(s.api, huma.Operation{
		OperationID: "restart-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{job_id}/restart",
		Summary:     "Restart Job",
		Description: "Stop and restart the job's FFmpeg process",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobStatusResponse, error) {
		if _, ok := s.store.GetJob(input.JobID); !ok {
			return nil, huma.Error404NotFound("job not found")
		}
		if err := s.manager.Restart(input.JobID); err != nil {
			return nil, huma.Error409Conflict(err.Error())
		}
		return s.statusResponse(input.JobID), nil
	})

	// Pause job
	huma.Register(s.api, huma.Operation{
		OperationID: "pause-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{job_id}/pause",
		Summary:     "Pause Job",
		Description: "Suspend the job's FFmpeg process at the OS level",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobStatusResponse, error) {
		if err := s.manager.Pause(input.JobID); err != nil {
			return nil, huma.Error409Conflict(err.Error())
		}
		return s.statusResponse(input.JobID), nil
	})

	// Resume job
	huma.Register(s.api, huma.Operation{
		OperationID: "resume-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{job_id}/resume",
		Summary:     "Resume Job",
		Description: "Continue a paused job's FFmpeg process",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobStatusResponse, error) {
		if err := s.manager.Resume(input.JobID); err != nil {
			return nil, huma.Error409Conflict(err.Error())
		}
		return s.statusResponse(input.JobID), nil
	})

	// Get job status
	huma.Register(s.api, huma.Operation{
		OperationID: "get-job-status",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{job_id}/status",
		Summary:     "Get Job Status",
		Description: "Get the runtime status of a job",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobStatusResponse, error) {
		if _, ok := s.store.GetJob(input.JobID); !ok {
			return nil, huma.Error404NotFound("job not found")
		}
		return s.statusResponse(input.JobID), nil
	})

	// Get latest progress snapshot
	huma.Register(s.api, huma.Operation{
		OperationID: "get-job-progress",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{job_id}/progress",
		Summary:     "Get Job Progress",
		Description: "Get the latest progress snapshot decoded from the running job",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobProgressResponse, error) {
		snap := metrics.GetJobMetrics(input.JobID)
		if snap == nil {
			return nil, huma.Error404NotFound("no progress recorded for job")
		}
		return &models.JobProgressResponse{
			Body: models.JobProgressData{
				JobID:           input.JobID,
				Frame:           snap.Frame,
				FPS:             snap.FPS,
				Bitrate:         snap.Bitrate,
				OutputBytes:     snap.OutputBytes,
				DroppedFrames:   snap.DroppedFrames,
				DuplicateFrames: snap.DuplicateFrames,
				Speed:           snap.Speed,
			},
		}, nil
	})

	// Get reconstructed media info
	huma.Register(s.api, huma.Operation{
		OperationID: "get-job-media",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{job_id}/media",
		Summary:     "Get Job Media Info",
		Description: "Get input metadata reconstructed from the running job's diagnostic output",
		Tags:        []string{"jobs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobMediaResponse, error) {
		inputs := s.manager.MediaInfo(input.JobID)
		if inputs == nil {
			return nil, huma.Error404NotFound("job not running")
		}
		return &models.JobMediaResponse{
			Body: models.JobMediaData{
				JobID:  input.JobID,
				Inputs: inputs,
			},
		}, nil
	})

	// Preview argument vector
	huma.Register(s.api, huma.Operation{
		OperationID: "get-job-args",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{job_id}/args",
		Summary:     "Get Job Arguments",
		Description: "Preview the FFmpeg argument vector the job would be started with",
		Tags:        []string{"jobs"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *jobIDParam) (*models.JobArgsResponse, error) {
		job, ok := s.store.GetJob(input.JobID)
		if !ok {
			return nil, huma.Error404NotFound("job not found")
		}

		p := job.BuildPipeline(nil)
		defer p.Close()
		args, err := p.Args()
		if err != nil {
			return nil, huma.Error400BadRequest("invalid job configuration", err)
		}

		return &models.JobArgsResponse{
			Body: models.JobArgsData{
				JobID: input.JobID,
				Args:  args,
			},
		}, nil
	})
}

type jobIDParam struct {
	JobID string `path:"job_id" example:"job-001" doc:"Job identifier"`
}

// configToAPIJob converts a stored job config to API job data with the
// manager's live state folded in.
func (s *Server) configToAPIJob(job config.JobConfig) models.JobData {
	info := s.manager.GetStatus(job.ID)
	return models.JobData{
		ID:         job.ID,
		Name:       job.Name,
		Enabled:    job.Enabled,
		State:      string(info.State),
		PID:        info.PID,
		GlobalArgs: job.GlobalArgs,
		Inputs:     job.Inputs,
		Outputs:    job.Outputs,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	}
}

func (s *Server) statusResponse(id string) *models.JobStatusResponse {
	info := s.manager.GetStatus(id)
	lastError := ""
	if info.LastError != nil {
		lastError = info.LastError.Error()
	}
	return &models.JobStatusResponse{
		Body: models.JobStatusData{
			JobID:        id,
			State:        string(info.State),
			PID:          info.PID,
			StartedAt:    info.StartedAt,
			RestartCount: info.RestartCount,
			LastError:    lastError,
		},
	}
}

func requestToConfig(req models.JobRequestData) config.JobConfig {
	return config.JobConfig{
		ID:         req.ID,
		Name:       req.Name,
		Enabled:    req.Enabled,
		GlobalArgs: req.GlobalArgs,
		Inputs:     req.Inputs,
		Outputs:    req.Outputs,
	}
}
