package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StandardError
		wantCode string
	}{
		{"configuration", NewConfigurationError("imageApiKey is not set"), "CONFIGURATION_ERROR"},
		{"image generation", NewImageGenerationError("Incorrect API key provided"), "IMAGE_GENERATION_FAILED"},
		{"image timeout", NewImageGenerationTimeoutError("timed out"), "IMAGE_GENERATION_TIMEOUT"},
		{"pinning", NewPinningError("ipfs pin response error"), "PINNING_FAILED"},
		{"pinning timeout", NewPinningTimeoutError("timed out"), "PINNING_TIMEOUT"},
		{"malformed", NewMalformedResponseError("No data in response", "publication"), "MALFORMED_RESPONSE"},
		{"input", NewInputValidationError("keyword is required"), "INPUT_VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.err)

			assert.Equal(t, tt.wantCode, bpmnErr.Code)
			assert.Equal(t, tt.err.Message, bpmnErr.Message)
			assert.Zero(t, bpmnErr.Retries)
			assert.Equal(t, string(tt.err.Code), bpmnErr.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_UnknownCodeFallsBack(t *testing.T) {
	bpmnErr := ConvertToBPMNError(&StandardError{Code: "SOMETHING_ELSE", Message: "m"})
	assert.Equal(t, "SOMETHING_ELSE", bpmnErr.Code)
}

func TestToErrorVariables_IncludesMetadata(t *testing.T) {
	stdErr := NewPinningError("Invalid/expired credentials provided.").WithMetadata("requestId", "req-1")

	vars := ConvertToBPMNError(stdErr).ToErrorVariables()

	assert.Equal(t, "PINNING_FAILED", vars["errorCode"])
	assert.Equal(t, "Invalid/expired credentials provided.", vars["errorMessage"])
	assert.Equal(t, "req-1", vars["requestId"])
	assert.NotContains(t, vars, "retryable")
}

func TestRaisesIncident(t *testing.T) {
	assert.True(t, RaisesIncident(ErrCodeConfiguration))
	for _, code := range []ErrorCode{
		ErrCodeInputValidationFailed,
		ErrCodeImageGenerationFailed,
		ErrCodeImageGenerationTimeout,
		ErrCodePinningFailed,
		ErrCodePinningTimeout,
		ErrCodeMalformedResponse,
		ErrCodeInternal,
	} {
		assert.False(t, RaisesIncident(code), code)
	}
}

func TestNormalize(t *testing.T) {
	stdErr := NewPinningError("boom")
	wrapped := fmt.Errorf("publish: %w", stdErr)
	assert.Same(t, stdErr, Normalize(wrapped))

	other := Normalize(fmt.Errorf("disk on fire"))
	require.NotNil(t, other)
	assert.Equal(t, ErrCodeInternal, other.Code)
	assert.Equal(t, "disk on fire", other.Details)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "IMAGE_GENERATION", GetErrorCategory(ErrCodeImageGenerationTimeout))
	assert.Equal(t, "PINNING", GetErrorCategory(ErrCodePinningFailed))
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeConfiguration))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInputValidationFailed))
	assert.Equal(t, "UPSTREAM", GetErrorCategory(ErrCodeMalformedResponse))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
