package openai

import "time"

// Config holds everything the client needs to talk to an OpenAI-compatible
// chat/completions endpoint.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration

	// LenientOptional retries schema validation after sanitizing
	// optional fields instead of failing outright.
	LenientOptional bool
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
}
