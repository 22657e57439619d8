package docqa

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/service/bedrockruntime"
	"github.com/siherrmann/docqa/core/generation"
	"github.com/siherrmann/docqa/core/pipeline"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"

	// s3:// storage URLs for the blob stores
	_ "github.com/viant/afsc/s3"
)

// providers builds embedders and generators from their configuration.
// Bedrock clients are created once per region.
type providers struct {
	defaultRegion string
	bedrock       map[string]*bedrockruntime.BedrockRuntime
}

func newProviders(defaultRegion string) *providers {
	return &providers{
		defaultRegion: defaultRegion,
		bedrock:       map[string]*bedrockruntime.BedrockRuntime{},
	}
}

func (p *providers) bedrockClient(region string) (*bedrockruntime.BedrockRuntime, error) {
	if region == "" {
		region = p.defaultRegion
	}
	if client, ok := p.bedrock[region]; ok {
		return client, nil
	}

	client, err := helper.NewBedrockClient(region)
	if err != nil {
		return nil, err
	}
	p.bedrock[region] = client
	return client, nil
}

// embedFunc returns nil without error for the "none" provider. The close
// function is only set for providers holding local resources.
func (p *providers) embedFunc(config model.ProviderConfig) (pipeline.EmbedFunc, func() error, error) {
	var embed pipeline.EmbedFunc
	var closer func() error

	switch strings.ToLower(config.Type) {
	case "", model.ProviderNone:
		return nil, nil, nil
	case model.ProviderBedrock:
		client, err := p.bedrockClient(config.Region)
		if err != nil {
			return nil, nil, err
		}
		embed = pipeline.BedrockTitanEmbedder(client, config.Model)
	case model.ProviderOpenAI:
		embed = pipeline.OpenAIEmbedder(helper.NewOpenAIClient(config.APIKey, config.BaseURL), config.Model)
	case model.ProviderLocal:
		var err error
		embed, closer, err = pipeline.DefaultEmbedder()
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unsupported embedding provider %q", config.Type)
	}

	return pipeline.WithRetry(embed, config.MaxRetries), closer, nil
}

// generator returns nil without error for the "none" provider.
func (p *providers) generator(config model.ProviderConfig) (*generation.Generator, error) {
	switch strings.ToLower(config.Type) {
	case "", model.ProviderNone:
		return nil, nil
	case model.ProviderBedrock:
		client, err := p.bedrockClient(config.Region)
		if err != nil {
			return nil, err
		}
		modelID := config.Model
		if modelID == "" {
			modelID = generation.DefaultTitanTextModel
		}
		if strings.HasPrefix(modelID, "anthropic.") {
			return &generation.Generator{Name: "bedrock:" + modelID, Generate: generation.BedrockClaudeGenerator(client, modelID)}, nil
		}
		return &generation.Generator{Name: "bedrock:" + modelID, Generate: generation.BedrockTitanGenerator(client, modelID)}, nil
	case model.ProviderOpenAI:
		modelName := config.Model
		if modelName == "" {
			modelName = generation.DefaultOpenAIModel
		}
		client := helper.NewOpenAIClient(config.APIKey, config.BaseURL)
		return &generation.Generator{Name: "openai:" + modelName, Generate: generation.OpenAIGenerator(client, modelName)}, nil
	case model.ProviderAnthropic:
		modelName := config.Model
		if modelName == "" {
			modelName = generation.DefaultAnthropicModel
		}
		client := helper.NewAnthropicClient(config.APIKey, config.BaseURL, config.MaxRetries)
		return &generation.Generator{Name: "anthropic:" + modelName, Generate: generation.AnthropicGenerator(client, modelName)}, nil
	default:
		return nil, fmt.Errorf("unsupported generation provider %q", config.Type)
	}
}
