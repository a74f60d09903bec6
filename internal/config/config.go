// SPDX-License-Identifier: MIT

// Package config loads and validates service configuration from the
// environment, optionally layered over a YAML file. Configuration is
// immutable after startup.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LengthWindow bounds the character budget of a summary for one requested
// length class.
type LengthWindow struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Config is the complete, immutable service configuration.
type Config struct {
	Listen string `yaml:"listen"`

	Supadata struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"supadata"`

	Gemini struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"gemini"`

	KV struct {
		URL   string `yaml:"url"`   // empty selects the in-memory backend
		Token string `yaml:"token"` // Redis password
	} `yaml:"kv"`

	RateLimit struct {
		Enabled bool `yaml:"enabled"`
		PostRPM int  `yaml:"postRpm"`
		GetRPM  int  `yaml:"getRpm"`
	} `yaml:"rateLimit"`

	TTL struct {
		JobSeconds   int `yaml:"job"`
		CacheSeconds int `yaml:"cache"`
	} `yaml:"ttl"`

	Transcript struct {
		MaxChars      int `yaml:"maxChars"`
		ChunkMinChars int `yaml:"chunkMinChars"`
		ChunkMaxChars int `yaml:"chunkMaxChars"`
	} `yaml:"transcript"`

	SummaryLength struct {
		Short    LengthWindow `yaml:"short"`
		Standard LengthWindow `yaml:"standard"`
		Detailed LengthWindow `yaml:"detailed"`
	} `yaml:"summaryLength"`

	KeyPoints struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"keyPoints"`

	AllowedHosts []string `yaml:"allowedHosts"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Listen = ":8080"
	c.Supadata.BaseURL = "https://api.supadata.ai/v1"
	c.Gemini.Model = "gemini-2.0-flash"
	c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	c.RateLimit.Enabled = true
	c.RateLimit.PostRPM = 10
	c.RateLimit.GetRPM = 120
	c.TTL.JobSeconds = 7200
	c.TTL.CacheSeconds = 604800
	c.Transcript.MaxChars = 120000
	c.Transcript.ChunkMinChars = 20000
	c.Transcript.ChunkMaxChars = 60000
	c.SummaryLength.Short = LengthWindow{Min: 300, Max: 600}
	c.SummaryLength.Standard = LengthWindow{Min: 600, Max: 1500}
	c.SummaryLength.Detailed = LengthWindow{Min: 1500, Max: 3000}
	c.KeyPoints.Min = 5
	c.KeyPoints.Max = 9
	c.AllowedHosts = []string{"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"}
	return c
}

// Load builds the configuration: defaults, then the optional YAML file named
// by YTSUM_CONFIG, then environment variables on top.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("YTSUM_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Listen = ParseString("YTSUM_LISTEN", c.Listen)

	c.Supadata.APIKey = ParseString("YTSUM_SUPADATA_API_KEY", c.Supadata.APIKey)
	c.Supadata.BaseURL = ParseString("YTSUM_SUPADATA_BASE_URL", c.Supadata.BaseURL)

	c.Gemini.APIKey = ParseString("YTSUM_GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.Model = ParseString("YTSUM_GEMINI_MODEL", c.Gemini.Model)
	c.Gemini.BaseURL = ParseString("YTSUM_GEMINI_BASE_URL", c.Gemini.BaseURL)

	c.KV.URL = ParseString("YTSUM_KV_URL", c.KV.URL)
	c.KV.Token = ParseString("YTSUM_KV_TOKEN", c.KV.Token)

	c.RateLimit.Enabled = ParseBool("YTSUM_RATELIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.PostRPM = ParseInt("YTSUM_RATELIMIT_POST_RPM", c.RateLimit.PostRPM)
	c.RateLimit.GetRPM = ParseInt("YTSUM_RATELIMIT_GET_RPM", c.RateLimit.GetRPM)

	c.TTL.JobSeconds = ParseInt("YTSUM_JOB_TTL", c.TTL.JobSeconds)
	c.TTL.CacheSeconds = ParseInt("YTSUM_CACHE_TTL", c.TTL.CacheSeconds)

	c.Transcript.MaxChars = ParseInt("YTSUM_TRANSCRIPT_MAX_CHARS", c.Transcript.MaxChars)
	c.Transcript.ChunkMinChars = ParseInt("YTSUM_CHUNK_MIN_CHARS", c.Transcript.ChunkMinChars)
	c.Transcript.ChunkMaxChars = ParseInt("YTSUM_CHUNK_MAX_CHARS", c.Transcript.ChunkMaxChars)

	c.KeyPoints.Min = ParseInt("YTSUM_KEYPOINTS_MIN", c.KeyPoints.Min)
	c.KeyPoints.Max = ParseInt("YTSUM_KEYPOINTS_MAX", c.KeyPoints.Max)

	c.AllowedHosts = ParseStringSlice("YTSUM_ALLOWED_HOSTS", c.AllowedHosts)
}

// Validate reports whether the configuration can serve requests. Missing
// provider credentials are a service-level failure surfaced as
// CONFIGURATION_ERROR on first request.
func (c Config) Validate() error {
	if c.Supadata.APIKey == "" {
		return fmt.Errorf("transcript provider credentials missing (YTSUM_SUPADATA_API_KEY)")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("summarizer credentials missing (YTSUM_GEMINI_API_KEY)")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("summarizer model id missing (YTSUM_GEMINI_MODEL)")
	}
	if c.Transcript.ChunkMinChars <= 0 || c.Transcript.ChunkMaxChars < c.Transcript.ChunkMinChars {
		return fmt.Errorf("invalid chunk thresholds: min=%d max=%d", c.Transcript.ChunkMinChars, c.Transcript.ChunkMaxChars)
	}
	if c.KeyPoints.Min <= 0 || c.KeyPoints.Max < c.KeyPoints.Min {
		return fmt.Errorf("invalid key point bounds: min=%d max=%d", c.KeyPoints.Min, c.KeyPoints.Max)
	}
	if len(c.AllowedHosts) == 0 {
		return fmt.Errorf("allowed host list is empty")
	}
	return nil
}

// LengthWindowFor returns the summary budget for a length class. Unknown
// classes resolve to standard.
func (c Config) LengthWindowFor(length string) LengthWindow {
	switch length {
	case "short":
		return c.SummaryLength.Short
	case "detailed":
		return c.SummaryLength.Detailed
	default:
		return c.SummaryLength.Standard
	}
}
