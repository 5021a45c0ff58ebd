// Package config holds the supportbot configuration surface.
// Values come from a YAML file layered over defaults; secrets are taken
// from the environment so they never land in a config file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all supportbot configuration.
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server"`

	// Generative model configuration
	LLM LLMConfig `yaml:"llm"`

	// Embedding model configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Retrieval / ingestion settings
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Conversation memory settings
	Memory MemoryConfig `yaml:"memory"`

	// Local data sources
	Data DataConfig `yaml:"data"`

	// Optional remote order API
	OrderAPI OrderAPIConfig `yaml:"order_api"`

	// Price summary tuning
	Pricing PricingConfig `yaml:"pricing"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// StoreBaseURL is the storefront used to build product card links.
	StoreBaseURL string `yaml:"store_base_url"`
}

// LLMConfig configures the chat-completions client.
type LLMConfig struct {
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Model   string `yaml:"model"`
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// RetrievalConfig configures the vector store and document splitting.
type RetrievalConfig struct {
	QdrantURL    string `yaml:"qdrant_url"`
	Collection   string `yaml:"collection"`
	TopK         int    `yaml:"top_k"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// MemoryConfig bounds the conversation history.
type MemoryConfig struct {
	// TokenBudget is owned by the memory collaborator; the pipeline only
	// passes it through.
	TokenBudget int `yaml:"token_budget"`
}

// DataConfig points at the local record files.
type DataConfig struct {
	ProductsPath string `yaml:"products_path"`
	CartsPath    string `yaml:"carts_path"`
	OrdersPath   string `yaml:"orders_path"`
	SQLitePath   string `yaml:"sqlite_path"`
}

// OrderAPIConfig configures the remote order lookup. Empty BaseURL
// disables it.
type OrderAPIConfig struct {
	BaseURL        string `yaml:"base_url"`
	PublishableKey string `yaml:"publishable_key"`
}

// PricingConfig tunes the catalog price aggregator.
type PricingConfig struct {
	// SummaryDepth is how many global cheapest/most-expensive items the
	// summary carries.
	SummaryDepth int `yaml:"summary_depth"`
	// LowTotalThreshold is the cutoff below which a stored order total is
	// treated as implausible and the computed item total wins. Heuristic
	// carried over from known bad historical dumps; no deeper derivation.
	LowTotalThreshold float64 `yaml:"low_total_threshold"`
}

// LoggingConfig selects the log verbosity.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8005",
			StoreBaseURL: "https://yogateria.com.br/produto/",
		},
		LLM: LLMConfig{
			Model:     "google/gemini-2.0-flash-lite-001",
			BaseURL:   "https://openrouter.ai/api/v1",
			MaxTokens: 2048,
		},
		Embedding: EmbeddingConfig{
			Model:   "BAAI/bge-small-en-v1.5",
			BaseURL: "https://router.huggingface.co/hf-inference/models",
		},
		Retrieval: RetrievalConfig{
			QdrantURL:    "http://localhost:6333",
			Collection:   "yogateria_products_v2",
			TopK:         10,
			ChunkSize:    512,
			ChunkOverlap: 50,
		},
		Memory: MemoryConfig{TokenBudget: 1500},
		Data: DataConfig{
			ProductsPath: "data/products.json",
			CartsPath:    "data/carts.json",
			OrdersPath:   "data/orders.json",
			SQLitePath:   "data/chat.db",
		},
		Pricing: PricingConfig{
			SummaryDepth:      5,
			LowTotalThreshold: 10,
		},
	}
}

// Load reads path (when non-empty) over the defaults and then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv pulls secrets and deploy-time overrides from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("HF_TOKEN"); v != "" {
		c.Embedding.Token = v
	}
	if v := os.Getenv("X_PUBLISHABLE_KEY"); v != "" {
		c.OrderAPI.PublishableKey = v
	}
	if v := os.Getenv("ORDER_API_URL"); v != "" {
		c.OrderAPI.BaseURL = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		c.Retrieval.QdrantURL = v
	}
	if v := os.Getenv("SUPPORTBOT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SUPPORTBOT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = b
		}
	}
}

// Validate checks the settings the service cannot start without.
// Data-source paths are deliberately not validated here: a missing record
// file degrades at runtime instead of failing startup.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key (or OPENROUTER_API_KEY) is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	return nil
}
