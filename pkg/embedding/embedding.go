// Package embedding generates chunk/query vectors through an OpenAI-
// compatible embeddings endpoint, grounded on the teacher's pkg/embedding
// Service: an enabled/disabled switch, batch splitting with per-item
// fallback to single calls, and a fixed output dimension the rest of the
// system treats as a contract. The transport is sashabaranov/go-openai
// rather than the teacher's hand-rolled http.Client, since that dependency
// is already in the domain stack for this service.
package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
)

// maxBatchSize mirrors the teacher's conservative batch cap for provider
// embedding endpoints.
const maxBatchSize = 32

type Client struct {
	client    *openai.Client
	model     string
	dimension int
}

func NewClient(apiKey, model string, dimension int) *Client {
	return &Client{client: openai.NewClient(apiKey), model: model, dimension: dimension}
}

func (c *Client) Dimension() int { return c.dimension }

// EmbedBatch generates one vector per text, splitting into provider-sized
// batches and falling back to individual calls for any batch that fails
// outright so one bad request doesn't sink the whole document.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding: texts cannot be empty")
	}

	result := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := c.embedBatchOnce(ctx, batch)
		if err != nil {
			logging.Warnf("embedding: batch %d-%d failed, falling back to single calls: %v", start, end, err)
			for i, text := range batch {
				v, singleErr := c.embedBatchOnce(ctx, []string{text})
				if singleErr != nil {
					return nil, fmt.Errorf("embedding: single embed for item %d: %w", start+i, singleErr)
				}
				result[start+i] = v[0]
			}
			continue
		}
		for i, v := range vectors {
			result[start+i] = v
		}
	}
	return result, nil
}

func (c *Client) embedBatchOnce(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding: invalid index %d in response", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
