// internal/models/fulfillment.go
package models

import "time"

const (
	FulfillmentSucceeded = "succeeded"
	FulfillmentFailed    = "failed"
)

// Fulfillment is the audit record of one pipeline run. It never carries
// credentials or the generated image itself.
type Fulfillment struct {
	RunID        string    `json:"runId"`
	RequestID    string    `json:"requestId"`
	Location     string    `json:"location"`
	Keyword      string    `json:"keyword"`
	Status       string    `json:"status"`
	ContentHash  string    `json:"contentHash,omitempty"`
	Result       string    `json:"result,omitempty"` // 0x-hex encoded result
	Encoding     string    `json:"encoding,omitempty"`
	ErrorKind    string    `json:"errorKind,omitempty"`
	ErrorStage   string    `json:"errorStage,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Source       string    `json:"source"` // "worker" or "cli"
	StartedAt    time.Time `json:"startedAt"`
	CompletedAt  time.Time `json:"completedAt"`
	DurationMs   int64     `json:"durationMs"`
}

func (f *Fulfillment) Succeeded() bool {
	return f.Status == FulfillmentSucceeded
}
