// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"apisense/internal/common/errors"
	"apisense/internal/common/logger"
	"apisense/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every pipeline stage that can run as a
// workflow job.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Registration describes one job worker to open.
type Registration struct {
	TaskType      string
	Handler       JobHandler
	MaxJobsActive int
	Timeout       time.Duration
}

// StartWorker opens a job worker for reg and returns it; callers Close it on
// shutdown.
func StartWorker(client zbc.Client, reg Registration, log logger.Logger) worker.JobWorker {
	jw := client.NewJobWorker().
		JobType(reg.TaskType).
		Handler(reg.Handler.Handle).
		MaxJobsActive(reg.MaxJobsActive).
		Timeout(reg.Timeout).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      reg.TaskType,
		"maxJobsActive": reg.MaxJobsActive,
		"timeout":       reg.Timeout.String(),
	})
	return jw
}

// RunJob decodes job variables into In, runs exec under timeout and reports
// the outcome to the engine. Failures go through errors.ErrorHandler so the
// engine, not the pipeline, decides on retries.
func RunJob[In any, Out any](
	client worker.JobClient,
	job entities.Job,
	taskType string,
	timeout time.Duration,
	log logger.Logger,
	exec func(ctx context.Context, input *In) (*Out, error),
) {
	start := time.Now()
	log.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	handler := errors.NewErrorHandler(log)

	var input In
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.ErrCodeInvalidInput)).Inc()
		handler.HandleJobError(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := exec(ctx, &input)
	metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.KindOf(err))).Inc()
		handler.HandleJobError(ctx, client, job, err)
		return
	}

	CompleteJob(ctx, client, job, output, log)
	metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}

// CompleteJob sends the completion command with output as job variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}
