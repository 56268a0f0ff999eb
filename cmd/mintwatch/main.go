package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "mintwatch",
		Usage: "SPL token holder and safety analysis CLI",
		Description: `A command-line tool for querying the mintwatch service.

Use this CLI to inspect holder distributions, whale positions, and the
heuristic safety assessment of SPL token mints.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Token analysis commands (HTTP API)
			{
				Name:  "analyze",
				Usage: "Token analysis commands",
				Subcommands: []*cli.Command{
					holdersCommand(),
					concentrationCommand(),
					whalesCommand(),
					safetyCommand(),
					reportCommand(),
				},
			},
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "mintwatch server URL",
				EnvVars: []string{"MINTWATCH_SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output compact JSON",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
