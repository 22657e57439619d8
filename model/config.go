package model

import "time"

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	TopK int `json:"top_k" yaml:"top_k"`
}

// DefaultQueryConfig returns the default ranking configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK: 3,
	}
}

// Provider names accepted in ProviderConfig.Type.
const (
	ProviderNone      = "none"
	ProviderBedrock   = "bedrock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
)

// ProviderConfig selects and configures an embedding or generation backend.
type ProviderConfig struct {
	Type       string `yaml:"type"`
	Model      string `yaml:"model"`
	Region     string `yaml:"region,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// Config is the process wide configuration. It is built once at startup
// and treated as read only afterwards.
type Config struct {
	ChunkSize         int           `yaml:"chunk_size"`
	ChunkOverlap      int           `yaml:"chunk_overlap"`
	TopK              int           `yaml:"top_k"`
	MaxFileSize       int64         `yaml:"max_file_size"`
	MaxQuestionLength int           `yaml:"max_question_length"`
	MaxTokens         int           `yaml:"max_tokens"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	StorageURL        string        `yaml:"storage_url"`

	Embedder  ProviderConfig `yaml:"embedder"`
	Primary   ProviderConfig `yaml:"primary"`
	Secondary ProviderConfig `yaml:"secondary"`
}

// DefaultConfig returns the configuration used when nothing is set.
// The providers default to the Titan models on Bedrock.
func DefaultConfig() Config {
	return Config{
		ChunkSize:         800,
		ChunkOverlap:      100,
		TopK:              3,
		MaxFileSize:       10 * 1024 * 1024,
		MaxQuestionLength: 1000,
		MaxTokens:         500,
		SessionTTL:        DefaultSessionTTL,
		StorageURL:        "file:///tmp/docqa",
		Embedder: ProviderConfig{
			Type:  ProviderBedrock,
			Model: "amazon.titan-embed-text-v1",
		},
		Primary: ProviderConfig{
			Type:  ProviderBedrock,
			Model: "amazon.titan-text-lite-v1",
		},
		Secondary: ProviderConfig{
			Type:  ProviderBedrock,
			Model: "anthropic.claude-instant-v1",
		},
	}
}

// ApplyDefaults fills zero fields with their default values. A negative
// overlap disables overlap. The secondary generator is optional and stays
// unset when empty.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = d.MaxFileSize
	}
	if c.MaxQuestionLength <= 0 {
		c.MaxQuestionLength = d.MaxQuestionLength
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.StorageURL == "" {
		c.StorageURL = d.StorageURL
	}
	if c.Embedder.Type == "" {
		c.Embedder = d.Embedder
	}
	if c.Primary.Type == "" {
		c.Primary = d.Primary
	}
}

// Validate reports settings that defaults cannot repair.
func (c *Config) Validate() error {
	if c.ChunkOverlap >= c.ChunkSize {
		return NewValidationError("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// QueryConfig returns the ranking configuration derived from c.
func (c *Config) QueryConfig() *QueryConfig {
	return &QueryConfig{TopK: c.TopK}
}
