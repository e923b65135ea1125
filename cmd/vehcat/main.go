package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "vehcat",
		Usage: "extract vehicle model records from batch announcement documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML configuration file",
				EnvVars: []string{"VEHCAT_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "process announcement documents and export records",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "file, directory or glob pattern", Required: true},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output CSV path (default <output.dir>/records.csv)"},
					&cli.StringFlag{Name: "xlsx", Usage: "also write an XLSX file to this path"},
					&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
					&cli.BoolFlag{Name: "skip-count-check", Usage: "do not look for a declared record count"},
					&cli.IntFlag{Name: "workers", Usage: "parallel documents (0 = GOMAXPROCS)", Value: -1},
				},
				Action: runAction,
			},
			{
				Name:      "inspect",
				Usage:     "show batch, structure, notes and tables of one document",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the consistency report as JSON"},
					&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
				},
				Action: inspectAction,
			},
			{
				Name:  "history",
				Usage: "list recent runs and failed documents",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of runs"},
					&cli.StringFlag{Name: "run", Usage: "show drop totals of one run"},
				},
				Action: historyAction,
			},
			{
				Name:  "watch",
				Usage: "poll a directory and process new documents",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "directory to watch (default watch.dir)"},
					&cli.BoolFlag{Name: "once", Usage: "run a single cycle and exit"},
				},
				Action: watchAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
