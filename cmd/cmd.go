// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, json, csv, markdown",
		Value:   "text",
	}
}

// setupCommand prepares the configuration file and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create config.toml if missing and run database migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.Rollback,
			},
		},
	}
}

// importCommand ingests streaming history exports
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import one or more streaming history JSON exports",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "file",
				Usage:    "Export file to import (repeatable)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "User id to import plays for (defaults to [import] default_user)",
			},
			formatFlag(),
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress view",
			},
		},
		Action: r.Import,
	}
}

// serveCommand runs the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP import service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override [server] host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override [server] port",
			},
		},
		Action: r.Serve,
	}
}

// catalogCommand performs raw catalog lookups
func catalogCommand(r *Runner) *cli.Command {
	prettyFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		}
	}

	localFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:  "local",
			Usage: "Read the row stored by a previous import instead of querying the catalog",
		}
	}

	return &cli.Command{
		Name:  "catalog",
		Usage: "Look up catalog entities and print them as JSON",
		Commands: []*cli.Command{
			{
				Name:      "track",
				Usage:     "Look up a track by URI or id",
				Arguments: []cli.Argument{&cli.StringArg{Name: "ref"}},
				Flags:     []cli.Flag{prettyFlag(), localFlag()},
				Action:    r.CatalogTrack,
			},
			{
				Name:      "artist",
				Usage:     "Look up an artist by id",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{prettyFlag(), localFlag()},
				Action:    r.CatalogArtist,
			},
		},
	}
}

// statsCommand reports what the database holds
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show row counts per table and listening time",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Include listening time for this user",
			},
			formatFlag(),
		},
		Action: r.Stats,
	}
}
