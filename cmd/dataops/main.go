// Command dataops runs the nightly dbt pipeline.
//
//	dataops serve    cron schedule plus the run API
//	dataops run      one run in the foreground, exit 1 if it fails
//	dataops plan     print the execution levels
//	dataops version  print build information
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tienminhktvn/dataops-project/bootstrap"
	"github.com/tienminhktvn/dataops-project/version"
)

const serviceName = "dataops"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "serve":
		err = lifecycle(ctx, rest, stdout, true)
	case "run":
		err = lifecycle(ctx, rest, stdout, false)
	case "plan":
		err = planCommand(rest, stdout)
	case "version":
		fmt.Fprintln(stdout, version.Get().String())
	case "help", "-h", "--help":
		usage(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		usage(stderr)
		return 2
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "dataops:", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: dataops <command> [flags]

commands:
  serve    start the cron schedule and the HTTP API
  run      execute the pipeline once and wait for it
  plan     print the execution plan
  version  print build information

Run "dataops <command> -h" for the command's flags.
`)
}

// commonFlags are accepted by every command that loads configuration.
type commonFlags struct {
	config  string
	envFile string
}

func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	c := &commonFlags{}
	fs.StringVar(&c.config, "config", "", "path to config.yml (default: search cmd/dataops, config/, .)")
	fs.StringVar(&c.envFile, "env-file", "", "path to a .env file")
	return fs, c
}

func (c *commonFlags) load() (*Config, error) {
	cfg, err := loadConfig(c.config, c.envFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// lifecycle runs serve or run through the bootstrap app.
func lifecycle(ctx context.Context, args []string, stdout io.Writer, serve bool) error {
	name := "run"
	if serve {
		name = "serve"
	}
	fs, common := newFlagSet(name, stdout)
	quiet := fs.Bool("quiet", false, "do not print the startup summary")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}

	opts := []bootstrap.Option{bootstrap.WithSummaryOutput(stdout)}
	if *quiet {
		opts = []bootstrap.Option{bootstrap.WithSummaryOutput(io.Discard)}
	}
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return err
	}
	svc, err := newService(app, serve)
	if err != nil {
		return err
	}
	if serve {
		return app.Run(ctx)
	}
	return app.RunTask(ctx, svc.runOnce)
}
