package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration decodes TOML duration strings such as "24h" or "5m";
// go-toml/v2 cannot decode a string into a bare time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

type AuthConfig struct {
	Secret   string   `toml:"secret"`
	TokenTTL Duration `toml:"token_ttl"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

// SimulationConfig sets the defaults a run request may override and the
// hard limits it may not.
type SimulationConfig struct {
	Days            int      `toml:"days"`
	RoundsPerDay    int      `toml:"rounds_per_day"`
	SelectionPolicy string   `toml:"selection_policy"`
	MaxVariants     int      `toml:"max_variants"`
	ChatTimeout     Duration `toml:"chat_timeout"`
	Parallelism     int      `toml:"parallelism"`
}

// SummaryConfig carries the summarizer prompt scaffolding around the
// experiment-authored summarizer sections.
type SummaryConfig struct {
	Preamble    string `toml:"preamble"`
	Instruction string `toml:"instruction"`
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Mongo      MongoConfig      `toml:"mongo"`
	Auth       AuthConfig       `toml:"auth"`
	LLM        LLMConfig        `toml:"llm"`
	Simulation SimulationConfig `toml:"simulation"`
	Summary    SummaryConfig    `toml:"summary"`
}

// Default returns a runnable local configuration; Load starts from it so a
// partial TOML file only overrides what it names.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "crucible",
		},
		Auth: AuthConfig{TokenTTL: Duration(24 * time.Hour)},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "gpt-oss:latest",
			BaseURL:  "http://localhost:11434",
		},
		Simulation: SimulationConfig{
			Days:            3,
			RoundsPerDay:    10,
			SelectionPolicy: "round_robin",
			MaxVariants:     512,
			ChatTimeout:     Duration(5 * time.Minute),
			Parallelism:     1,
		},
		Summary: SummaryConfig{
			Instruction: "Summarize the key events and dynamics of the conversation above in a short paragraph suitable for briefing the next day's session.",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}
