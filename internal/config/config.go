package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Paths struct {
		Templates string `yaml:"templates"`
		JSON      string `yaml:"json"`
		AI        string `yaml:"ai"`
		Data      string `yaml:"data"` // workbooks
	} `yaml:"paths"`
	AI struct {
		Provider string `yaml:"provider"` // openai | gemini
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
		Regroup  bool   `yaml:"regroup"` // re-paragraph long summaries
	} `yaml:"ai"`
	Session struct {
		DB string `yaml:"db"`
	} `yaml:"session"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Paths.Templates = "assets/templates"
	cfg.Paths.JSON = "assets/json"
	cfg.Paths.AI = "assets/ai"
	cfg.Paths.Data = "assets/data"
	cfg.AI.Provider = "openai"
	cfg.AI.Model = "gpt-4o"
	cfg.Session.DB = "docfill.db"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config; a missing file keeps the defaults
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if apiKey := os.Getenv("DOCFILL_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if provider := os.Getenv("DOCFILL_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if model := os.Getenv("DOCFILL_AI_MODEL"); model != "" {
		cfg.AI.Model = model
	}

	return cfg, nil
}
