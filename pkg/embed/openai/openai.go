package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider implements embed.Provider using OpenAI.
type Provider struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// New creates a new OpenAI Provider. The default model is
// text-embedding-3-large (3072 dimensions).
func New(opts ...option.RequestOption) *Provider {
	client := openai.NewClient(opts...)
	return &Provider{
		client: &client,
		model:  openai.EmbeddingModelTextEmbedding3Large,
	}
}

// SetModel overrides the embedding model. All records in one store must be
// embedded with the same model, or similarity comparisons fail on dimension.
func (p *Provider) SetModel(model openai.EmbeddingModel) {
	p.model = model
}

// CreateEmbeddings generates embeddings for the given texts.
func (p *Provider) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: p.model,
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		// Convert []float64 to []float32
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}

	return embeddings, nil
}
