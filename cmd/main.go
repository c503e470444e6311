package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/rompatch/logging"
)

func main() {
	cli := cli.App{
		Name:  "rompatch",
		Usage: "Patch team and player data into game disc images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "one of debug, info, warn, error",
				Value:   "info",
				EnvVars: []string{"ROMPATCH_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "text or json",
				Value:   "text",
				EnvVars: []string{"ROMPATCH_LOG_FORMAT"},
			},
		},
		Before: setUpLogging,
		Commands: []*cli.Command{
			patchCommand,
			ppfCommand,
			archiveCommand,
			refpackCommand,
			imageCommand,
			tdbCommand,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.RunContext(ctx, os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func setUpLogging(context *cli.Context) error {
	level, err := logging.ParseLevel(context.String("log-level"))
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(context.String("log-format"))
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

// requireArgs fails unless exactly `n` positional arguments were given.
func requireArgs(context *cli.Context, n int) error {
	if context.NArg() != n {
		return cli.Exit(
			"expected "+context.Command.ArgsUsage+"\n\n"+context.Command.Usage,
			2)
	}
	return nil
}
