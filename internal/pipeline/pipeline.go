// Package pipeline generates a ticket image for a request, pins its
// reference to IPFS and encodes the resulting content hash.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	httpclient "ticketpin-workers/internal/common/http"
	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/common/metrics"
)

// DefaultCallTimeout bounds each upstream call. Calls are never retried.
const DefaultCallTimeout = 9 * time.Second

const tracerName = "ticketpin-workers/pipeline"

type callTimeoutKey struct{}

func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, callTimeoutKey{}, timeout)
	return context.WithTimeout(ctx, timeout)
}

func callTimeoutFrom(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(callTimeoutKey{}).(time.Duration)
	return d, ok
}

type Options struct {
	Credentials CredentialSource
	Generator   ImageGenerator
	Publisher   Publisher
	Encoder     Encoder
	Logger      logger.Logger
	CallTimeout time.Duration
}

// Pipeline is stateless across runs and safe for concurrent use.
type Pipeline struct {
	credentials CredentialSource
	generator   ImageGenerator
	publisher   Publisher
	encoder     Encoder
	logger      logger.Logger
	callTimeout time.Duration
	tracer      trace.Tracer
}

func New(opts Options) (*Pipeline, error) {
	if opts.Credentials == nil {
		return nil, errors.New("pipeline: credential source is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("pipeline: image generator is required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("pipeline: publisher is required")
	}
	if opts.Encoder == nil {
		opts.Encoder = UTF8Encoder{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}

	return &Pipeline{
		credentials: opts.Credentials,
		generator:   opts.Generator,
		publisher:   opts.Publisher,
		encoder:     opts.Encoder,
		logger:      opts.Logger,
		callTimeout: opts.CallTimeout,
		tracer:      otel.Tracer(tracerName),
	}, nil
}

// Config describes the upstream endpoints for Build.
type Config struct {
	ImageBaseURL   string
	ImageModel     string
	ImageSize      string
	PinningBaseURL string
	Encoding       string
	CallTimeout    time.Duration
}

// Build wires the OpenAI generator and Pinata publisher over one transport.
func Build(cfg Config, creds CredentialSource, log logger.Logger) (*Pipeline, error) {
	encoder, err := NewEncoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	transport := httpclient.NewClient(timeout)

	return New(Options{
		Credentials: creds,
		Generator: NewOpenAIGenerator(OpenAIConfig{
			BaseURL: cfg.ImageBaseURL,
			Model:   cfg.ImageModel,
			Size:    cfg.ImageSize,
		}, transport),
		Publisher:   NewPinataPublisher(cfg.PinningBaseURL, transport),
		Encoder:     encoder,
		Logger:      log,
		CallTimeout: timeout,
	})
}

// Run executes one fulfillment. It either returns a Result or a single
// *Error; nothing partial is ever returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("request.id", req.RequestID),
	))
	defer span.End()

	log := p.logger.With(map[string]interface{}{"requestId": req.RequestID})

	result, err := p.run(ctx, req, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.PipelineRuns.WithLabelValues("failed").Inc()

		fields := map[string]interface{}{"error": err.Error()}
		if pErr, ok := AsError(err); ok {
			fields["kind"] = string(pErr.Kind)
			fields["stage"] = string(pErr.Stage)
		}
		log.Error("pipeline run failed", fields)
		return nil, err
	}

	metrics.PipelineRuns.WithLabelValues("succeeded").Inc()
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, log logger.Logger) (*Result, error) {
	creds, err := p.resolveCredentials(ctx)
	if err != nil {
		return nil, err
	}

	var image *GeneratedImage
	err = p.stage(ctx, StageImageGeneration, func(ctx context.Context) error {
		var genErr error
		image, genErr = p.generator.Generate(ctx, req, creds.ImageAPIKey)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	log.Info("image generated", map[string]interface{}{"imageUrl": image.URL})

	var contentHash string
	err = p.stage(ctx, StagePublication, func(ctx context.Context) error {
		var pinErr error
		contentHash, pinErr = p.publisher.Publish(ctx, image, req, creds.PinningAPIKey)
		return pinErr
	})
	if err != nil {
		return nil, err
	}
	log.Info("image reference pinned", map[string]interface{}{"ipfsHash": contentHash})

	encoded, err := p.encoder.Encode(contentHash)
	if err != nil {
		p.recordFailure(StageEncoding, err)
		return nil, err
	}

	return &Result{
		RequestID:   req.RequestID,
		ContentHash: contentHash,
		Encoded:     encoded,
	}, nil
}

func (p *Pipeline) resolveCredentials(ctx context.Context) (Credentials, error) {
	creds, err := p.credentials.Credentials(ctx)
	if err != nil {
		cfgErr := configurationError(fmt.Sprintf("resolve credentials: %v", err), err)
		p.recordFailure(StageCredentials, cfgErr)
		return Credentials{}, cfgErr
	}
	if err := CheckCredentials(creds); err != nil {
		p.recordFailure(StageCredentials, err)
		return Credentials{}, err
	}
	return creds, nil
}

// stage runs fn under its own deadline, span and metrics.
func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	callCtx, cancel := withCallTimeout(ctx, p.callTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	metrics.PipelineStageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())

	if err != nil {
		// Stage implementations return *Error; anything else is a bug in a
		// substitute implementation and is reported as upstream failure.
		if _, ok := AsError(err); !ok {
			err = upstreamError(stage, err.Error(), err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.recordFailure(stage, err)
		return err
	}
	return nil
}

func (p *Pipeline) recordFailure(stage Stage, err error) {
	kind := "unknown"
	if pErr, ok := AsError(err); ok {
		kind = string(pErr.Kind)
	}
	metrics.PipelineStageFailures.WithLabelValues(string(stage), kind).Inc()
}
