package pipeline

import (
	"testing"
	"time"

	"github.com/tienminhktvn/dataops-project/errors"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	d := cfg.TaskDefaults()
	if d.Retries != 3 || d.RetryDelay != 5*time.Minute || d.Multiplier != 2 ||
		d.MaxRetryDelay != 30*time.Minute || d.Timeout != 2*time.Hour {
		t.Errorf("task defaults = %+v", d)
	}
	if cfg.Schedule != "0 1 * * *" || cfg.Target != "dev" || cfg.Runner != RunnerDockerCLI {
		t.Errorf("config = %+v", cfg)
	}
}

func TestConfig_ExplicitZeroRetries(t *testing.T) {
	zero := 0
	cfg := Config{DefaultRetries: &zero}
	cfg.ApplyDefaults()
	if got := cfg.TaskDefaults().Retries; got != 0 {
		t.Errorf("retries = %d, want 0", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"second active run", func(c *Config) { c.MaxActiveRuns = 2 }},
		{"unknown runner", func(c *Config) { c.Runner = "ssh" }},
		{"cap below base delay", func(c *Config) { c.MaxRetryDelay = time.Minute }},
		{"shrinking multiplier", func(c *Config) { c.RetryMultiplier = 0.5 }},
		{"docker-cli without container", func(c *Config) { c.Container = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}
			cfg.ApplyDefaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestCommandBuilder_Build(t *testing.T) {
	tests := []struct {
		name    string
		builder CommandBuilder
		command string
		want    string
	}{
		{
			name:    "docker exec wrap",
			builder: CommandBuilder{ProfilesDir: "/usr/app/dbt", Target: "dev", Container: "dataops-dbt"},
			command: "dbt test",
			want:    "docker exec dataops-dbt dbt test --profiles-dir /usr/app/dbt --target dev",
		},
		{
			name:    "local shell",
			builder: CommandBuilder{ProfilesDir: "/usr/app/dbt", Target: "prod"},
			command: "  dbt docs generate ",
			want:    "dbt docs generate --profiles-dir /usr/app/dbt --target prod",
		},
		{
			name:    "flags already present",
			builder: CommandBuilder{ProfilesDir: "/usr/app/dbt", Target: "dev"},
			command: "dbt run --target=ci",
			want:    "dbt run --target=ci --profiles-dir /usr/app/dbt",
		},
		{
			name:    "non dbt command",
			builder: CommandBuilder{ProfilesDir: "/usr/app/dbt", Target: "dev"},
			command: "echo done",
			want:    "echo done",
		},
		{
			name:    "quoted path",
			builder: CommandBuilder{ProfilesDir: "/opt/my profiles", ProjectDir: "/srv/dbt"},
			command: "dbt seed",
			want:    "dbt seed --profiles-dir '/opt/my profiles' --project-dir /srv/dbt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.builder.Build(tt.command); got != tt.want {
				t.Errorf("Build(%q) = %q, want %q", tt.command, got, tt.want)
			}
		})
	}
}

func TestNewCommandBuilder_ContainerOnlyForDockerCLI(t *testing.T) {
	cfg := Config{Runner: RunnerDocker}
	cfg.ApplyDefaults()
	if b := NewCommandBuilder(cfg); b.Container != "" {
		t.Errorf("container = %q for the engine API runner", b.Container)
	}
}
