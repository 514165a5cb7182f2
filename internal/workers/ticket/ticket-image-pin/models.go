package ticketimagepin

import (
	"context"
	"time"

	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/fulfillment"
	"ticketpin-workers/internal/pipeline"
)

// Input mirrors the job variables set by the requesting process.
type Input struct {
	RequestID string `json:"requestId"`
	Location  string `json:"location"`
	Keyword   string `json:"keyword"`
}

func (i *Input) toRequest() pipeline.Request {
	return pipeline.Request{RequestID: i.RequestID, Location: i.Location, Keyword: i.Keyword}
}

type Output struct {
	RequestID   string `json:"requestId"`
	ContentHash string `json:"contentHash"`
	Result      string `json:"result"` // 0x-hex of the encoded content hash
	Encoding    string `json:"encoding"`
	RunID       string `json:"runId"`
}

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// RunObserver records run-level OTel metrics.
type RunObserver interface {
	RecordRun(ctx context.Context, duration time.Duration, status string)
}

type ServiceDependencies struct {
	Logger   logger.Logger
	Runner   Runner
	Recorder fulfillment.Recorder
	Observer RunObserver
	Now      func() time.Time
	NewRunID func() string
}
