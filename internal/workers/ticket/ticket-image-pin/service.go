package ticketimagepin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ticketpin-workers/internal/common/errors"
	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/fulfillment"
	"ticketpin-workers/internal/pipeline"
)

// Service runs the pipeline for one request and records the outcome.
type Service struct {
	config   *Config
	logger   logger.Logger
	runner   Runner
	recorder fulfillment.Recorder
	observer RunObserver
	now      func() time.Time
	newRunID func() string
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	s := &Service{
		config:   config,
		logger:   deps.Logger,
		runner:   deps.Runner,
		recorder: deps.Recorder,
		observer: deps.Observer,
		now:      deps.Now,
		newRunID: deps.NewRunID,
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}
	if s.recorder == nil {
		s.recorder = fulfillment.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newRunID == nil {
		s.newRunID = uuid.NewString
	}
	return s
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	runID := s.newRunID()
	started := s.now()
	log := s.logger.With(map[string]interface{}{
		"runId":     runID,
		"requestId": input.RequestID,
	})

	log.Info("Executing ticket image pin", map[string]interface{}{
		"location": input.Location,
		"keyword":  input.Keyword,
	})

	req := input.toRequest()
	result, runErr := s.runner.Run(ctx, req)

	finished := s.now()
	record := fulfillment.FromRun(fulfillment.Run{
		RunID:     runID,
		Source:    "worker",
		Encoding:  s.config.Pipeline.Encoding,
		Request:   req,
		StartedAt: started,
		Result:    result,
		Err:       runErr,
	}, finished)

	// Recording is best effort and must not alter the outcome. It uses a
	// detached context so a job deadline does not drop the audit row.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.Record(recordCtx, record); err != nil {
		log.Warn("Failed to record fulfillment", map[string]interface{}{"error": err.Error()})
	}

	if s.observer != nil {
		s.observer.RecordRun(ctx, finished.Sub(started), record.Status)
	}

	if runErr != nil {
		return nil, toStandardError(runErr).
			WithMetadata("requestId", input.RequestID).
			WithMetadata("runId", runID)
	}

	return &Output{
		RequestID:   input.RequestID,
		ContentHash: result.ContentHash,
		Result:      result.Hex(),
		Encoding:    s.config.Pipeline.Encoding,
		RunID:       runID,
	}, nil
}

// toStandardError maps a pipeline failure onto the BPMN error catalogue. The
// upstream message is carried unchanged as the error message.
func toStandardError(err error) *errors.StandardError {
	pErr, ok := pipeline.AsError(err)
	if !ok {
		return errors.NewInternalError(err)
	}

	var stdErr *errors.StandardError
	switch pErr.Kind {
	case pipeline.KindConfiguration:
		stdErr = errors.NewConfigurationError(pErr.Message)
	case pipeline.KindTimeout:
		if pErr.Stage == pipeline.StagePublication {
			stdErr = errors.NewPinningTimeoutError(pErr.Message)
		} else {
			stdErr = errors.NewImageGenerationTimeoutError(pErr.Message)
		}
	case pipeline.KindUpstream:
		if pErr.Stage == pipeline.StagePublication {
			stdErr = errors.NewPinningError(pErr.Message)
		} else {
			stdErr = errors.NewImageGenerationError(pErr.Message)
		}
	case pipeline.KindMalformedResponse:
		stdErr = errors.NewMalformedResponseError(pErr.Message, string(pErr.Stage))
	default:
		stdErr = errors.NewInternalError(err)
	}

	return stdErr.
		WithMetadata("errorKind", string(pErr.Kind)).
		WithMetadata("stage", string(pErr.Stage))
}
