package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultImageModel = openai.CreateImageModelDallE2
	DefaultImageSize  = openai.CreateImageSize256x256

	imageFallbackMessage = "openai response error"
	imageServiceName     = "openai image generation"
)

// ImageGenerator turns a request into exactly one generated image.
type ImageGenerator interface {
	Generate(ctx context.Context, req Request, apiKey string) (*GeneratedImage, error)
}

// BuildPrompt interpolates the event keyword and location into the fixed
// ticket prompt.
func BuildPrompt(req Request) string {
	return fmt.Sprintf(`Please create an image of a ticket for the event "%s" at "%s"`, req.Keyword, req.Location)
}

type OpenAIConfig struct {
	BaseURL string
	Model   string
	Size    string
}

// OpenAIGenerator calls the OpenAI images API. A client is built per call
// from the run's key so nothing credential-bearing outlives the run.
type OpenAIGenerator struct {
	config     OpenAIConfig
	httpClient openai.HTTPDoer
}

func NewOpenAIGenerator(config OpenAIConfig, httpClient openai.HTTPDoer) *OpenAIGenerator {
	if config.Model == "" {
		config.Model = DefaultImageModel
	}
	if config.Size == "" {
		config.Size = DefaultImageSize
	}
	return &OpenAIGenerator{config: config, httpClient: httpClient}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request, apiKey string) (*GeneratedImage, error) {
	clientConfig := openai.DefaultConfig(apiKey)
	if g.config.BaseURL != "" {
		clientConfig.BaseURL = g.config.BaseURL
	}
	var doer openai.HTTPDoer = http.DefaultClient
	if g.httpClient != nil {
		doer = g.httpClient
	}
	clientConfig.HTTPClient = envelopeDoer{next: doer}
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateImage(ctx, openai.ImageRequest{
		Model:          g.config.Model,
		Prompt:         BuildPrompt(req),
		Size:           g.config.Size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	})
	if err != nil {
		return nil, classifyImageError(ctx, err)
	}

	if resp.Data == nil {
		return nil, malformedError(StageImageGeneration, "No data in response")
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, malformedError(StageImageGeneration, "No image url in response")
	}

	return &GeneratedImage{URL: resp.Data[0].URL}, nil
}

func classifyImageError(ctx context.Context, err error) error {
	if isTimeout(ctx, err) {
		deadline, _ := callTimeoutFrom(ctx)
		return timeoutError(StageImageGeneration, imageServiceName, deadline, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return upstreamError(StageImageGeneration, apiErr.Message, err)
	}

	return upstreamError(StageImageGeneration, imageFallbackMessage, err)
}

// envelopeDoer surfaces an error envelope sent with a 2xx status. The client
// library only decodes errors on non-2xx responses, so such a body would
// otherwise parse as an image response without data.
type envelopeDoer struct {
	next openai.HTTPDoer
}

func (d envelopeDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.next.Do(req)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && hasValue(envelope.Error) {
		resp.StatusCode = http.StatusBadGateway
		resp.Status = http.StatusText(http.StatusBadGateway)
	}
	return resp, nil
}

func hasValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
