package helper

import openai "github.com/sashabaranov/go-openai"

// NewOpenAIClient creates a go-openai client. baseURL is optional and allows
// pointing the client at any server speaking the OpenAI protocol.
func NewOpenAIClient(apiKey string, baseURL string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}
