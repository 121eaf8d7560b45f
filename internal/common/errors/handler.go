// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler handles job errors with standardized error handling
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError fails the job with retries when the error is retryable and
// the job still has retries left, and throws a BPMN error otherwise.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := NormalizeError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)

	if bpmnErr.Retries > 0 && job.Retries > 0 {
		h.failJobWithRetries(ctx, client, job, bpmnErr)
	} else {
		h.throwBPMNError(ctx, client, job, bpmnErr)
	}
}

// NormalizeError ensures we always have a StandardError
func NormalizeError(err error) *StandardError {
	if err == nil {
		err = stderrors.New("unknown error")
	}
	return FromError(err)
}

// RetriesFor never grants more retries than the job has left.
func RetriesFor(job entities.Job, bpmnErr *BPMNError) int32 {
	retries := int32(bpmnErr.Retries)
	if job.Retries > 0 && job.Retries-1 < retries {
		retries = job.Retries - 1
	}
	if retries < 0 {
		retries = 0
	}
	return retries
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables())

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(RetriesFor(job, bpmnErr)).
		ErrorMessage(bpmnErr.Message)

	if err == nil {
		cmdWithVars, err := cmd.VariablesFromString(string(varsJSON))
		if err == nil {
			h.send(ctx, job, func(ctx context.Context) error {
				_, err := cmdWithVars.Send(ctx)
				return err
			})
			return
		}
	}

	h.send(ctx, job, func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables())

	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if err == nil {
		cmdWithVars, err := cmd.VariablesFromString(string(varsJSON))
		if err == nil {
			h.send(ctx, job, func(ctx context.Context) error {
				_, err := cmdWithVars.Send(ctx)
				return err
			})
			return
		}
	}

	h.send(ctx, job, func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
}

func (h *ErrorHandler) send(ctx context.Context, job entities.Job, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		h.logger.Error("failed to report job error to broker", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          bpmnErr.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
