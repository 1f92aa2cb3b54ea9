package main

import (
	"errors"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// LoadConfig loads the configuration from the environment.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")
	err := k.Load(env.Provider("FORMFILL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "FORMFILL_")), "_", ".", -1)
	}), nil)
	if err != nil {
		return nil, err
	}

	result := DefaultConfig()
	if err := k.Unmarshal("", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DefaultConfig returns sensible, but not complete, default configuration values.
func DefaultConfig() Config {
	return Config{
		LogLevel:       zerolog.InfoLevel,
		OptionCacheTTL: 5 * time.Minute,
	}
}

type Config struct {
	// Questionnaire identifies the form to fill: a path to a JSON file, a
	// literal reference (Questionnaire/123) or a search URL on the FHIR server.
	Questionnaire string `koanf:"questionnaire"`
	// Answers optionally points to a JSON file with initial answers, keyed by linkId.
	Answers string `koanf:"answers"`
	// FHIR holds the configuration for the FHIR server used to resolve
	// questionnaires and externally defined choice lists.
	FHIR FHIRConfig `koanf:"fhir"`
	// OptionCacheTTL bounds how long externally defined choice lists are cached.
	OptionCacheTTL time.Duration `koanf:"optionttl"`
	LogLevel       zerolog.Level `koanf:"loglevel"`
}

// FHIRConfig holds the configuration for a FHIR API endpoint.
type FHIRConfig struct {
	// BaseURL holds the base URL of the FHIR API.
	BaseURL string `koanf:"url"`
}

func (c Config) Validate() error {
	if c.Questionnaire == "" {
		return errors.New("questionnaire is not configured")
	}
	return nil
}
