package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration at path. A missing file yields the defaults.
// Values from the environment (and a .env file) override the file:
// DOCQA_STORAGE_URL, AWS_REGION, OPENAI_API_KEY and ANTHROPIC_API_KEY.
func Load(path string) (*model.Config, error) {
	_ = godotenv.Load()

	cfg := model.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, helper.NewError("read config", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, helper.NewError("parse config", err)
		}
	}

	applyEnv(&cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, helper.NewError("validate config", err)
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML, creating directories as needed.
// API keys are not written.
func Save(path string, cfg *model.Config) error {
	out := *cfg
	out.Embedder.APIKey = ""
	out.Primary.APIKey = ""
	out.Secondary.APIKey = ""

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return helper.NewError("create config directory", err)
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return helper.NewError("marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return helper.NewError("write config", err)
	}
	return nil
}

func applyEnv(cfg *model.Config) {
	if url := os.Getenv("DOCQA_STORAGE_URL"); url != "" {
		cfg.StorageURL = url
	}

	for _, provider := range []*model.ProviderConfig{&cfg.Embedder, &cfg.Primary, &cfg.Secondary} {
		switch provider.Type {
		case model.ProviderBedrock:
			if provider.Region == "" {
				provider.Region = os.Getenv("AWS_REGION")
			}
		case model.ProviderOpenAI:
			if provider.APIKey == "" {
				provider.APIKey = os.Getenv("OPENAI_API_KEY")
			}
		case model.ProviderAnthropic:
			if provider.APIKey == "" {
				provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			}
		}
	}
}
