package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"ticketpin-workers/internal/models"
)

// ElasticsearchRecorder indexes fulfillments so they can be searched by
// keyword, location or request id. The run id is the document id, so a
// replayed record overwrites rather than duplicates.
type ElasticsearchRecorder struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchRecorder(client *elasticsearch.Client, index string) *ElasticsearchRecorder {
	return &ElasticsearchRecorder{client: client, index: index}
}

func (r *ElasticsearchRecorder) Name() string { return "elasticsearch" }

func (r *ElasticsearchRecorder) Record(ctx context.Context, f *models.Fulfillment) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fulfillment: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: f.RunID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("index fulfillment %s: %w", f.RunID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index fulfillment %s: %s", f.RunID, res.Status())
	}
	return nil
}
