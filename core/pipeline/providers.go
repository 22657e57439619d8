package pipeline

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/siherrmann/docqa/helper"
)

// DefaultTitanEmbeddingModel is the Bedrock model used for embeddings.
const DefaultTitanEmbeddingModel = "amazon.titan-embed-text-v1"

type titanEmbeddingRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbeddingResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// BedrockTitanEmbedder embeds text with an Amazon Titan embedding model on Bedrock.
func BedrockTitanEmbedder(client helper.BedrockInvoker, modelID string) EmbedFunc {
	if modelID == "" {
		modelID = DefaultTitanEmbeddingModel
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		var response titanEmbeddingResponse
		err := helper.InvokeBedrockModel(ctx, client, modelID, titanEmbeddingRequest{InputText: text}, &response)
		if err != nil {
			return nil, err
		}
		if len(response.Embedding) == 0 {
			return nil, errors.New("no embedding in bedrock response")
		}
		return response.Embedding, nil
	}
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API or any
// server speaking the same protocol.
func OpenAIEmbedder(client *openai.Client, model string) EmbedFunc {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(model),
			Input: []string{text},
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}

		if len(resp.Data) == 0 {
			return nil, errors.New("no embedding data returned from API")
		}

		values := resp.Data[0].Embedding
		embedding := make([]float32, len(values))
		for i := range values {
			embedding[i] = float32(values[i])
		}

		return embedding, nil
	}
}
