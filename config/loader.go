package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tienminhktvn/dataops-project/logger"
)

// DefaultEnvPrefix is stripped from environment variables before they are
// bound, so DATAOPS_PIPELINE_TARGET maps to pipeline.target.
const DefaultEnvPrefix = "DATAOPS_"

// FileSystem abstracts file lookups so tests can fake the search paths.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem implements FileSystem on the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// ConfigResolver finds the config and env files for a service.
type ConfigResolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when given and otherwise searches the
// standard locations.
func (r *ConfigResolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.firstExisting(configSearchPaths(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.firstExisting(envSearchPaths(serviceName))
	}
	return resolved
}

func (r *ConfigResolver) firstExisting(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

func configSearchPaths(serviceName string) []string {
	var paths []string
	for _, prefix := range []string{".", "..", "../.."} {
		paths = append(paths, fmt.Sprintf("%s/cmd/%s/config.yml", prefix, serviceName))
	}
	return append(paths, "./config/config.yml", "./config.yml")
}

func envSearchPaths(serviceName string) []string {
	var paths []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		for _, prefix := range []string{".", "..", "../.."} {
			paths = append(paths, fmt.Sprintf("%s/cmd/%s/%s", prefix, serviceName, name))
		}
		paths = append(paths, "./"+name)
	}
	return paths
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	EnvPrefix  string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// LoadConfig loads configuration for a service into cfg.
// Precedence, lowest first: YAML file, .env file, process environment.
// A missing or unreadable config file is logged and skipped.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{EnvPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = OSFileSystem{}
	}

	resolver := &ConfigResolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	v := viper.New()
	log := logger.Get("config")

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("failed to read config file", logger.Fields("path", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load env file", logger.Fields("path", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	bindEnv(v, os.Environ(), lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// bindEnv sets every KEY=value pair under each nested key variant of KEY.
// Prefixed variables are bound after unprefixed ones so they win.
func bindEnv(v *viper.Viper, environ []string, prefix string) {
	var prefixed [][2]string
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || key == "" {
			continue
		}
		if prefix != "" && strings.HasPrefix(key, prefix) {
			prefixed = append(prefixed, [2]string{strings.TrimPrefix(key, prefix), value})
			continue
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
	for _, kv := range prefixed {
		for _, variant := range envKeyVariants(kv[0]) {
			v.Set(variant, kv[1])
		}
	}
}

// envKeyVariants maps an environment key to the viper keys it may stand for.
//
//	PIPELINE_MAX_PARALLEL -> pipeline_max_parallel, pipeline.max.parallel, pipeline.max_parallel
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	variants := []string{lower, strings.Join(parts, ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return dedupe(variants)
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
