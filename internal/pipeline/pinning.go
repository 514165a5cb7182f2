package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	httpclient "ticketpin-workers/internal/common/http"
)

const (
	DefaultPinningBaseURL = "https://api.pinata.cloud"
	pinJSONPath           = "/pinning/pinJSONToIPFS"

	pinFallbackMessage = "ipfs pin response error"
	pinServiceName     = "ipfs pin"
)

// Publisher pins a generated image reference and returns its content hash.
type Publisher interface {
	Publish(ctx context.Context, image *GeneratedImage, req Request, apiKey string) (string, error)
}

type pinRequest struct {
	PinataContent  pinContent  `json:"pinataContent"`
	PinataMetadata pinMetadata `json:"pinataMetadata"`
}

type pinContent struct {
	URL string `json:"url"`
}

type pinMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues"`
}

type pinResponse struct {
	IpfsHash    string    `json:"IpfsHash"`
	PinSize     int64     `json:"PinSize"`
	Timestamp   string    `json:"Timestamp"`
	IsDuplicate bool      `json:"isDuplicate"`
	Error       *pinError `json:"error"`
}

// pinError accepts both {"error":{"reason":..,"details":..}} and
// {"error":"..."} envelopes.
type pinError struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

func (e *pinError) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &e.Reason)
	}
	type plain pinError
	return json.Unmarshal(trimmed, (*plain)(e))
}

// PinataPublisher pins JSON documents through the Pinata pinning API.
type PinataPublisher struct {
	baseURL string
	client  *httpclient.Client
}

func NewPinataPublisher(baseURL string, client *httpclient.Client) *PinataPublisher {
	if baseURL == "" {
		baseURL = DefaultPinningBaseURL
	}
	return &PinataPublisher{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func newPinRequest(image *GeneratedImage, req Request) pinRequest {
	return pinRequest{
		PinataContent: pinContent{URL: image.URL},
		PinataMetadata: pinMetadata{
			Name: req.RequestID + ".json",
			KeyValues: map[string]string{
				"keyword":  req.Keyword,
				"location": req.Location,
			},
		},
	}
}

func (p *PinataPublisher) Publish(ctx context.Context, image *GeneratedImage, req Request, apiKey string) (string, error) {
	resp, err := p.client.PostJSON(ctx, p.baseURL+pinJSONPath, apiKey, newPinRequest(image, req))
	if err != nil {
		if isTimeout(ctx, err) {
			deadline, _ := callTimeoutFrom(ctx)
			return "", timeoutError(StagePublication, pinServiceName, deadline, err)
		}
		return "", upstreamError(StagePublication, pinFallbackMessage, err)
	}

	body := bytes.TrimSpace(resp.Body)
	var parsed pinResponse
	if len(body) == 0 || bytes.Equal(body, []byte("null")) || json.Unmarshal(body, &parsed) != nil {
		if !resp.IsSuccess() {
			return "", upstreamError(StagePublication, pinFallbackMessage, nil)
		}
		return "", malformedError(StagePublication, "No data in response")
	}

	if parsed.Error != nil {
		if parsed.Error.Details != "" {
			return "", upstreamError(StagePublication, parsed.Error.Details, nil)
		}
		return "", upstreamError(StagePublication, pinFallbackMessage, nil)
	}
	if !resp.IsSuccess() {
		return "", upstreamError(StagePublication, pinFallbackMessage, nil)
	}

	if parsed.IpfsHash == "" {
		return "", malformedError(StagePublication, "No IpfsHash in response")
	}

	return parsed.IpfsHash, nil
}
