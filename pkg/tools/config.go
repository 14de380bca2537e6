package tools

import "time"

// Config controls how the registry dispatches calls.
type Config struct {
	// Timeout bounds a single tool invocation. 0 means no timeout.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Allowed restricts which tools may run, as glob patterns. Empty allows all.
	Allowed []string `mapstructure:"allowed" yaml:"allowed"`
	// Validate checks arguments against the parameter schema before dispatch.
	Validate bool `mapstructure:"validate" yaml:"validate"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		Validate: true,
	}
}

func (c Config) WithTimeout(d time.Duration) Config {
	c.Timeout = d
	return c
}

func (c Config) WithAllowed(patterns ...string) Config {
	c.Allowed = patterns
	return c
}

func (c Config) WithValidate(validate bool) Config {
	c.Validate = validate
	return c
}
