package pipeline

import (
	"strings"
)

// CommandBuilder turns a definition command into the command line a runner
// executes. dbt invocations get the profile flags appended; in docker-cli
// mode the whole line is wrapped in docker exec.
type CommandBuilder struct {
	ProfilesDir string
	ProjectDir  string
	Target      string
	// Container is set only for the docker-cli runner.
	Container string
}

// NewCommandBuilder derives a builder from cfg.
func NewCommandBuilder(cfg Config) CommandBuilder {
	b := CommandBuilder{
		ProfilesDir: cfg.ProfilesDir,
		ProjectDir:  cfg.ProjectDir,
		Target:      cfg.Target,
	}
	if cfg.Runner == RunnerDockerCLI {
		b.Container = cfg.Container
	}
	return b
}

// Build expands command. Flags already present on the command are kept.
//
//	dbt run --select tag:bronze
//	-> docker exec dataops-dbt dbt run --select tag:bronze --profiles-dir /usr/app/dbt --target dev
func (b CommandBuilder) Build(command string) string {
	command = strings.TrimSpace(command)
	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "dbt" {
		if b.ProfilesDir != "" && !hasFlag(args, "--profiles-dir") {
			command += " --profiles-dir " + quote(b.ProfilesDir)
		}
		if b.ProjectDir != "" && !hasFlag(args, "--project-dir") {
			command += " --project-dir " + quote(b.ProjectDir)
		}
		if b.Target != "" && !hasFlag(args, "--target") {
			command += " --target " + quote(b.Target)
		}
	}
	if b.Container != "" {
		command = "docker exec " + quote(b.Container) + " " + command
	}
	return command
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag || strings.HasPrefix(a, flag+"=") {
			return true
		}
	}
	return false
}

// quote single-quotes s for sh when it contains anything beyond a safe set.
func quote(s string) string {
	if s != "" && strings.IndexFunc(s, unsafeShellRune) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func unsafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=@%+,", r)
}
