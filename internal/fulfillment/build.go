package fulfillment

import (
	"time"

	"ticketpin-workers/internal/models"
	"ticketpin-workers/internal/pipeline"
)

// Run describes one finished pipeline run.
type Run struct {
	RunID     string
	Source    string
	Encoding  string
	Request   pipeline.Request
	StartedAt time.Time
	Result    *pipeline.Result
	Err       error
}

// FromRun builds the audit record for run, stamping completion at now.
func FromRun(run Run, now time.Time) *models.Fulfillment {
	f := &models.Fulfillment{
		RunID:       run.RunID,
		RequestID:   run.Request.RequestID,
		Location:    run.Request.Location,
		Keyword:     run.Request.Keyword,
		Encoding:    run.Encoding,
		Source:      run.Source,
		StartedAt:   run.StartedAt,
		CompletedAt: now,
		DurationMs:  now.Sub(run.StartedAt).Milliseconds(),
	}

	if run.Err != nil {
		f.Status = models.FulfillmentFailed
		f.ErrorMessage = run.Err.Error()
		if pErr, ok := pipeline.AsError(run.Err); ok {
			f.ErrorKind = string(pErr.Kind)
			f.ErrorStage = string(pErr.Stage)
		}
		return f
	}

	f.Status = models.FulfillmentSucceeded
	if run.Result != nil {
		f.ContentHash = run.Result.ContentHash
		f.Result = run.Result.Hex()
	}
	return f
}
