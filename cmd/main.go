package main

import (
	"context"
	"os"

	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	config.ApplyEnv(os.LookupEnv)

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Logger:  logger,
		Version: version,
	})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

// newApp builds the root command with global flags and every subcommand.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "listenlog",
		Usage:   "Import streaming history exports into a local listening log",
		Version: r.version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Configure,
		Commands: r.register(),
	}
}
