package ticketimagepin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"ticketpin-workers/internal/common/camunda"
	"ticketpin-workers/internal/common/config"
	"ticketpin-workers/internal/common/errors"
	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/common/metrics"
	"ticketpin-workers/internal/common/validation"
	"ticketpin-workers/internal/fulfillment"
	"ticketpin-workers/internal/pipeline"
)

const TaskType = "ticket-image-pin"

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	service      *Service
	errorHandler *errors.ErrorHandler
	inputSchema  map[string]interface{}
	jobWorker    worker.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Logger       logger.Logger

	// Credentials defaults to the API keys in AppConfig.
	Credentials pipeline.CredentialSource
	// Runner replaces the pipeline built from the configuration.
	Runner   Runner
	Recorder fulfillment.Recorder
	Observer RunObserver
	// InputSchema usually comes from the activity registry.
	InputSchema map[string]interface{}
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.With(map[string]interface{}{"worker": TaskType})

	runner := opts.Runner
	if runner == nil {
		creds := opts.Credentials
		if creds == nil {
			creds = credentialsFromAppConfig(opts.AppConfig)
		}
		p, err := pipeline.Build(workerConfig.Pipeline, creds, loggerInstance)
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		runner = p
	}

	schema := opts.InputSchema
	if len(schema) == 0 {
		schema = GetInputSchema()
	}

	handler := &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		camunda:      opts.Camunda,
		errorHandler: errors.NewErrorHandler(loggerInstance),
		inputSchema:  schema,
	}

	handler.service = NewService(ServiceDependencies{
		Logger:   loggerInstance,
		Runner:   runner,
		Recorder: opts.Recorder,
		Observer: opts.Observer,
	}, handler.config)

	return handler, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing ticket image pin request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "COMPLETE_FAILED").Inc()
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := []byte(job.GetVariables())

	result, err := validation.ValidateJSON(h.inputSchema, raw)
	if err != nil {
		return nil, errors.NewInputValidationError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInputValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInputValidationError(err.Error())
	}
	return &input, nil
}

// Execute runs one request outside of a job, as the CLI and tests do.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	variables := map[string]interface{}{
		"requestId":   output.RequestID,
		"contentHash": output.ContentHash,
		"result":      output.Result,
		"encoding":    output.Encoding,
		"runId":       output.RunID,
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	send := func(ctx context.Context) error {
		_, err := request.Send(ctx)
		return err
	}
	if h.camunda != nil {
		err = h.camunda.ExecuteWithRetry(ctx, "complete job", send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}

	h.logger.Info("Successfully completed ticket image pin", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"requestId":   output.RequestID,
		"contentHash": output.ContentHash,
		"runId":       output.RunID,
	})
	return nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()

	outcome, sendErr := h.errorHandler.HandleJobError(ctx, client, job, err)
	if sendErr != nil {
		h.logger.Error("Failed to report job failure to Camunda", map[string]interface{}{
			"jobKey":  job.GetKey(),
			"outcome": string(outcome),
			"error":   sendErr.Error(),
		})
	}
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("camunda client is required to register %s", TaskType)
	}

	h.jobWorker = camunda.OpenJobWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h.Handle)

	h.logger.Info("Ticket image pin worker registered with Camunda", map[string]interface{}{
		"taskType":      TaskType,
		"maxJobsActive": h.config.MaxJobsActive,
		"timeout":       h.config.Timeout.String(),
		"encoding":      h.config.Pipeline.Encoding,
	})

	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.logger.Info("Shutting down worker gracefully", nil)
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda == nil {
		return fmt.Errorf("camunda client not configured")
	}
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}
	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func extractErrorCode(err error) string {
	return string(errors.Normalize(err).Code)
}

func credentialsFromAppConfig(appConfig *config.Config) pipeline.CredentialSource {
	if appConfig == nil {
		return pipeline.StaticCredentials{}
	}
	return pipeline.StaticCredentials{
		ImageAPIKey:   appConfig.Pipeline.Image.APIKey,
		PinningAPIKey: appConfig.Pipeline.Pinning.APIKey,
	}
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig == nil {
		return cfg
	}

	if workerCfg, exists := appConfig.Workers[TaskType]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(workerCfg.Timeout)
		}
	}

	p := appConfig.Pipeline
	cfg.Pipeline.ImageBaseURL = p.Image.BaseURL
	if p.Image.Model != "" {
		cfg.Pipeline.ImageModel = p.Image.Model
	}
	if p.Image.Size != "" {
		cfg.Pipeline.ImageSize = p.Image.Size
	}
	if p.Pinning.BaseURL != "" {
		cfg.Pipeline.PinningBaseURL = p.Pinning.BaseURL
	}
	if p.Encoding != "" {
		cfg.Pipeline.Encoding = p.Encoding
	}
	if p.CallTimeout > 0 {
		cfg.Pipeline.CallTimeout = config.GetDuration(p.CallTimeout)
	}

	return cfg
}
