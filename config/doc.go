// Package config loads service configuration from a YAML file, a .env
// file and the process environment.
//
// Viper reads the YAML file first, then every environment variable is
// bound under its nested key variants so that DATAOPS_PIPELINE_TARGET or
// PIPELINE_TARGET both override pipeline.target. godotenv loads the .env
// file before binding.
//
// # Usage
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Pipeline pipeline.Config `yaml:"pipeline" mapstructure:"pipeline"`
//	}
//
//	var cfg Config
//	err := config.LoadConfig("dataops", &cfg, config.WithConfigFile(path))
package config
