package logger

import "fmt"

// Config contains logging configuration.
type Config struct {
	// ServiceName tags every line; filled from the service config when empty.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	// Output is stdout, stderr or file.
	Output    string     `yaml:"output" mapstructure:"output"`
	File      FileConfig `yaml:"file" mapstructure:"file"`
	NoColor   bool       `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool       `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool       `yaml:"caller" mapstructure:"caller"`
	// Levels quiets single components, e.g. {"scheduler": "warn"}.
	Levels map[string]string `yaml:"levels" mapstructure:"levels"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	if c.Output == OutputFile {
		c.NoColor = true
		c.File.ApplyDefaults()
	}
	c.Timestamp = true
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "trace"}
	if !contains(validLevels, c.Level) {
		return fmt.Errorf("logging.level must be one of %v (got: %s)", validLevels, c.Level)
	}
	validFormats := []string{"json", "console", "pretty"}
	if !contains(validFormats, c.Format) {
		return fmt.Errorf("logging.format must be one of %v (got: %s)", validFormats, c.Format)
	}
	validOutputs := []string{"stdout", "stderr", OutputFile}
	if c.Output != "" && !contains(validOutputs, c.Output) {
		return fmt.Errorf("logging.output must be one of %v (got: %s)", validOutputs, c.Output)
	}
	for name, lvl := range c.Levels {
		if !contains(validLevels, lvl) {
			return fmt.Errorf("logging.levels.%s must be one of %v (got: %s)", name, validLevels, lvl)
		}
	}
	if c.Output == OutputFile && c.File.Path == "" {
		return fmt.Errorf("logging.file.path is required when output is file")
	}
	return nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
