package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	_ "github.com/rw-r-r-0644/vjudge-sync/judge/script"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(afero.NewOsFs()).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp(fs afero.Fs) *cli.Command {
	syncCmd := &cli.Command{
		Name:  "sync",
		Usage: "refresh problem sets and submit every pending problem",
		Flags: []cli.Flag{
			judgeFlag(),
			&cli.BoolFlag{
				Name:  "no-fetch",
				Usage: "submit over the stored problem sets without refreshing them",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSync(ctx, cmd, fs)
		},
	}

	return &cli.Command{
		Name:  "vjudge-sync",
		Usage: "mirror solved problems from online judges into vjudge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file (default " + defaultConfigFile + " if present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "console or json",
			},
		},
		Commands: []*cli.Command{
			syncCmd,
			{
				Name:  "status",
				Usage: "show the problem set and ledger of each judge",
				Flags: []cli.Flag{judgeFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStatus(cmd, fs)
				},
			},
			{
				Name:  "prune",
				Usage: "drop non-terminal ledger entries so they are retried",
				Flags: []cli.Flag{
					judgeFlag(),
					&cli.BoolFlag{Name: "dry-run", Usage: "report what would be removed"},
					&cli.BoolFlag{Name: "no-backup", Usage: "do not keep a copy of the old ledger"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runPrune(cmd, fs)
				},
			},
			{
				Name:  "judges",
				Usage: "list the available judge types and their settings",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runJudges(cmd)
				},
			},
		},
		Action: syncCmd.Action,
	}
}

func judgeFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "judge",
		Usage: "only process the named judge (repeatable)",
	}
}
