package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"github.com/siherrmann/docqa/helper"
)

const (
	DefaultTitanTextModel  = "amazon.titan-text-lite-v1"
	DefaultClaudeTextModel = "anthropic.claude-instant-v1"
	DefaultAnthropicModel  = "claude-3-5-haiku-latest"
	DefaultOpenAIModel     = openai.GPT4oMini
	defaultTemperature     = 0.7
	defaultTopP            = 0.9
)

type titanTextConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

type titanTextRequest struct {
	InputText            string          `json:"inputText"`
	TextGenerationConfig titanTextConfig `json:"textGenerationConfig"`
}

type titanTextResponse struct {
	Results []struct {
		OutputText       string `json:"outputText"`
		CompletionReason string `json:"completionReason"`
	} `json:"results"`
}

// BedrockTitanGenerator generates text with an Amazon Titan text model on Bedrock.
func BedrockTitanGenerator(client helper.BedrockInvoker, modelID string) GenerateFunc {
	if modelID == "" {
		modelID = DefaultTitanTextModel
	}

	return func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		request := titanTextRequest{
			InputText: prompt,
			TextGenerationConfig: titanTextConfig{
				MaxTokenCount: maxTokens,
				Temperature:   defaultTemperature,
				TopP:          defaultTopP,
			},
		}

		var response titanTextResponse
		if err := helper.InvokeBedrockModel(ctx, client, modelID, request, &response); err != nil {
			return "", err
		}
		if len(response.Results) == 0 {
			return "", errors.New("no results in titan response")
		}
		return response.Results[0].OutputText, nil
	}
}

type claudeTextRequest struct {
	Prompt            string  `json:"prompt"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
}

type claudeTextResponse struct {
	Completion string `json:"completion"`
	StopReason string `json:"stop_reason"`
}

// BedrockClaudeGenerator generates text with a Claude model on Bedrock
// using the text completion request format.
func BedrockClaudeGenerator(client helper.BedrockInvoker, modelID string) GenerateFunc {
	if modelID == "" {
		modelID = DefaultClaudeTextModel
	}

	return func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		request := claudeTextRequest{
			Prompt:            fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			MaxTokensToSample: maxTokens,
			Temperature:       defaultTemperature,
			TopP:              defaultTopP,
		}

		var response claudeTextResponse
		if err := helper.InvokeBedrockModel(ctx, client, modelID, request, &response); err != nil {
			return "", err
		}
		return response.Completion, nil
	}
}

// OpenAIGenerator generates text with the OpenAI chat completions API.
func OpenAIGenerator(client *openai.Client, model string) GenerateFunc {
	if model == "" {
		model = DefaultOpenAIModel
	}

	return func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   maxTokens,
			Temperature: defaultTemperature,
			TopP:        defaultTopP,
		})
		if err != nil {
			return "", fmt.Errorf("openai chat completion: %w", err)
		}

		if len(resp.Choices) == 0 {
			return "", errors.New("no choices returned from API")
		}
		return resp.Choices[0].Message.Content, nil
	}
}

// AnthropicGenerator generates text with the Anthropic Messages API.
func AnthropicGenerator(client *anthropic.Client, model string) GenerateFunc {
	if model == "" {
		model = DefaultAnthropicModel
	}

	return func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
			Temperature: anthropic.Float(defaultTemperature),
		})
		if err != nil {
			return "", fmt.Errorf("anthropic messages: %w", err)
		}

		var text strings.Builder
		for _, block := range message.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		return text.String(), nil
	}
}
