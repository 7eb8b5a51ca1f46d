// Package config provides configuration structures and loading for
// linkbridge.
package config

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig             `yaml:"server" mapstructure:"server"`
	Processing ProcessingConfig         `yaml:"processing" mapstructure:"processing"`
	Lookup     map[string][]string      `yaml:"lookup" mapstructure:"lookup"`
	Logging    LoggingConfig            `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig holds the HTTP server's own bind address and defaults for
// collaborator calls.
type ServerConfig struct {
	Addr             string `yaml:"addr" mapstructure:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeoutSecs int    `yaml:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
}

// ProcessingConfig holds the one tunable the ambient config exposes into an
// otherwise-pure algorithmic component: the enricher/resolver fan-out
// width, one knob into an algorithmic loop.
type ProcessingConfig struct {
	MaxFanout int `yaml:"max_fanout" mapstructure:"max_fanout"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// ApplyOverrides layers non-empty CLI flag values on top of the config file,
// scoped to the two knobs linkbridge's CLI actually exposes.
func (c *Config) ApplyOverrides(logLevel, logFormat string) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             ":8080",
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 30,
		},
		Processing: ProcessingConfig{
			MaxFanout: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
