package helper

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NewAnthropicClient creates an Anthropic API client. baseURL is optional,
// maxRetries < 0 keeps the client default.
func NewAnthropicClient(apiKey string, baseURL string, maxRetries int) *anthropic.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(maxRetries))
	}

	client := anthropic.NewClient(opts...)
	return &client
}
