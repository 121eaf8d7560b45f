// internal/workers/intelligence/collect-company-data/handler.go
package collectcompanydata

import (
	"context"
	"encoding/json"
	"time"

	"company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/metrics"
	"company-intel/internal/common/observability"
	"company-intel/internal/common/validation"
	"company-intel/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "collect-company-data"
)

// Collector is satisfied by the collector agent.
type Collector interface {
	Collect(ctx context.Context, query models.Query) (*models.CollectedData, error)
}

type Handler struct {
	config       *Config
	collector    Collector
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, collector Collector, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		collector:    collector,
		errorHandler: errors.NewErrorHandler(l),
		obs:          obs,
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.run(ctx, job.Variables)
	if err != nil {
		h.record(ctx, start, err)
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
	h.record(ctx, start, nil)
}

func (h *Handler) run(ctx context.Context, variables string) (*Output, error) {
	input, err := ParseInput(variables, h.config.InputSchema)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

// Execute collects data for the requested company.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	data, err := h.collector.Collect(ctx, models.NewQuery(input.Company))
	if err != nil {
		return nil, err
	}

	h.logger.Info("company data collected", map[string]interface{}{
		"company":    data.Company,
		"structured": data.Structured,
		"sources":    len(data.Sources),
	})

	return &Output{
		Company:    data.Company,
		RawData:    data.Raw,
		Structured: data.Structured,
		Sources:    data.SourceURLs(),
	}, nil
}

// ParseInput validates job variables against schema and decodes them.
func ParseInput(variables string, schema map[string]interface{}) (*Input, error) {
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &vars); err != nil {
		return nil, errors.NewInputValidationFailedError("parse input: " + err.Error())
	}
	if result := validation.ValidateInput(vars, schema); !result.Valid {
		return nil, errors.NewInputValidationFailedError(result.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInputValidationFailedError("parse input: " + err.Error())
	}
	return &input, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) record(ctx context.Context, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "completed"
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.NormalizeError(err).Code)).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, status)
	h.obs.RecordJobDuration(ctx, TaskType, elapsed, status)
}
