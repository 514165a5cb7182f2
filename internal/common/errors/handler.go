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

// Outcome names what HandleJobError did with the job.
type Outcome string

const (
	OutcomeIncident Outcome = "incident"
	OutcomeThrown   Outcome = "bpmn_error"
)

// HandleJobError fails the job with zero retries for incident codes and
// throws a BPMN error otherwise. It returns the outcome and the error from
// sending the command.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) (Outcome, error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	if RaisesIncident(stdErr.Code) {
		h.logError(job, stdErr, bpmnErr, OutcomeIncident)
		return OutcomeIncident, h.failJob(ctx, client, job, bpmnErr)
	}

	h.logError(job, stdErr, bpmnErr, OutcomeThrown)
	return OutcomeThrown, h.throwBPMNError(ctx, client, job, bpmnErr)
}

// Normalize ensures we always have a StandardError
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) error {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(bpmnErr.Retries)).
		ErrorMessage(bpmnErr.Message)

	varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err == nil {
		if cmdWithVars, varErr := cmd.VariablesFromString(string(varsJSON)); varErr == nil {
			_, sendErr := cmdWithVars.Send(ctx)
			return sendErr
		}
	}

	_, sendErr := cmd.Send(ctx)
	return sendErr
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) error {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err == nil {
		if cmdWithVars, varErr := cmd.VariablesFromString(string(varsJSON)); varErr == nil {
			_, sendErr := cmdWithVars.Send(ctx)
			return sendErr
		}
	}

	_, sendErr := cmd.Send(ctx)
	return sendErr
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError, outcome Outcome) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"outcome":          string(outcome),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
