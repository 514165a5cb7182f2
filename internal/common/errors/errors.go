// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfiguration         ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"

	ErrCodeImageGenerationFailed  ErrorCode = "IMAGE_GENERATION_FAILED"
	ErrCodeImageGenerationTimeout ErrorCode = "IMAGE_GENERATION_TIMEOUT"

	ErrCodePinningFailed  ErrorCode = "PINNING_FAILED"
	ErrCodePinningTimeout ErrorCode = "PINNING_TIMEOUT"

	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newStandardError(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationError reports a missing or unusable credential or setting.
// Operators have to act, so the job raises an incident instead of a BPMN error.
func NewConfigurationError(message string) *StandardError {
	return newStandardError(ErrCodeConfiguration, message, "")
}

func NewInputValidationError(details string) *StandardError {
	return newStandardError(ErrCodeInputValidationFailed, "Input validation failed", details)
}

// NewImageGenerationError carries the upstream message verbatim.
func NewImageGenerationError(message string) *StandardError {
	return newStandardError(ErrCodeImageGenerationFailed, message, "")
}

func NewImageGenerationTimeoutError(message string) *StandardError {
	return newStandardError(ErrCodeImageGenerationTimeout, message, "")
}

// NewPinningError carries the upstream message verbatim.
func NewPinningError(message string) *StandardError {
	return newStandardError(ErrCodePinningFailed, message, "")
}

func NewPinningTimeoutError(message string) *StandardError {
	return newStandardError(ErrCodePinningTimeout, message, "")
}

func NewMalformedResponseError(message, stage string) *StandardError {
	return newStandardError(ErrCodeMalformedResponse, message, fmt.Sprintf("stage: %s", stage))
}

func NewInternalError(err error) *StandardError {
	return newStandardError(ErrCodeInternal, "Unexpected error", err.Error())
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. They are
// identical so process models can catch on the internal code.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfiguration:          "CONFIGURATION_ERROR",
	ErrCodeInputValidationFailed:  "INPUT_VALIDATION_FAILED",
	ErrCodeImageGenerationFailed:  "IMAGE_GENERATION_FAILED",
	ErrCodeImageGenerationTimeout: "IMAGE_GENERATION_TIMEOUT",
	ErrCodePinningFailed:          "PINNING_FAILED",
	ErrCodePinningTimeout:         "PINNING_TIMEOUT",
	ErrCodeMalformedResponse:      "MALFORMED_RESPONSE",
	ErrCodeInternal:               "INTERNAL_ERROR",
}

// RaisesIncident reports codes that fail the job for operator attention
// rather than routing the process through a BPMN error boundary.
func RaisesIncident(code ErrorCode) bool {
	return code == ErrCodeConfiguration
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retries:        0, // upstream calls are never retried
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "IMAGE_GENERATION"):
		return "IMAGE_GENERATION"
	case strings.HasPrefix(codeStr, "PINNING"):
		return "PINNING"
	case code == ErrCodeMalformedResponse:
		return "UPSTREAM"
	case code == ErrCodeConfiguration:
		return "CONFIGURATION"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
