package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/games"
	"github.com/dargueta/rompatch/logging"
	"github.com/dargueta/rompatch/orchestrator"
	"github.com/dargueta/rompatch/ppf"
	"github.com/dargueta/rompatch/roster"
)

var targetFlag = &cli.StringFlag{
	Name:    "target",
	Usage:   "game the image belongs to",
	Value:   "we2002",
	EnvVars: []string{"ROMPATCH_TARGET"},
}

var patchCommand = &cli.Command{
	Name:      "patch",
	Usage:     "Write a roster into a copy of a disc image",
	ArgsUsage: "SOURCE_IMAGE  OUTPUT_IMAGE",
	Action:    patchImage,
	Flags: []cli.Flag{
		targetFlag,
		&cli.StringFlag{
			Name:     "roster",
			Usage:    "CSV file with one row per player",
			Required: true,
			EnvVars:  []string{"ROMPATCH_ROSTER"},
		},
		&cli.StringFlag{
			Name:    "base-patch",
			Usage:   "PPF patch to apply before writing teams",
			EnvVars: []string{"ROMPATCH_BASE_PATCH"},
		},
		&cli.BoolFlag{
			Name:  "skip-validation",
			Usage: "apply the base patch even if its validation block doesn't match",
		},
		&cli.BoolFlag{
			Name:  "skip-image-check",
			Usage: "don't check that the image belongs to the target",
		},
		&cli.StringSliceFlag{
			Name:  "pin",
			Usage: "put a team in a specific slot, as TEAM=POOL:SLOT",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "write the report to this file instead of stdout",
		},
	},
}

func parsePins(values []string) (map[string]string, error) {
	pins := make(map[string]string, len(values))
	for _, value := range values {
		team, slot, found := strings.Cut(value, "=")
		if !found || team == "" || slot == "" {
			return nil, rompatch.ErrInvalidArgument.WithMessage(
				fmt.Sprintf("bad pin %q, expected TEAM=POOL:SLOT", value))
		}
		pins[team] = slot
	}
	return pins, nil
}

func loadRoster(path string) ([]rompatch.TeamRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}
	defer file.Close()
	return roster.ReadCSV(file)
}

func patchImage(context *cli.Context) error {
	if err := requireArgs(context, 2); err != nil {
		return err
	}

	target, err := games.ByName(context.String("target"))
	if err != nil {
		return err
	}
	teams, err := loadRoster(context.String("roster"))
	if err != nil {
		return err
	}
	pins, err := parsePins(context.StringSlice("pin"))
	if err != nil {
		return err
	}

	config := orchestrator.Config{
		SourcePath:       context.Args().Get(0),
		OutputPath:       context.Args().Get(1),
		Target:           target,
		Pins:             pins,
		SkipImageCheck:   context.Bool("skip-image-check"),
		BasePatchOptions: ppf.ApplyOptions{SkipValidation: context.Bool("skip-validation")},
		Progress: func(p rompatch.Progress) {
			logging.Debug(p.Message, "state", p.State, "step", p.Step, "total", p.Total)
		},
	}
	if path := context.String("base-patch"); path != "" {
		config.BasePatch, err = ppf.Open(path)
		if err != nil {
			return err
		}
	}

	report, runErr := orchestrator.Run(context.Context, config, teams)
	if report != nil {
		if err = writeReport(report, context.String("report")); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if !report.Passed() {
		if err = report.VerificationError(); err != nil {
			return err
		}
		return report.SlotErrors.ErrorOrNil()
	}
	return nil
}

func writeReport(report *orchestrator.Report, path string) error {
	if path == "" {
		_, err := report.WriteTo(os.Stdout)
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	defer file.Close()

	if _, err = report.WriteTo(file); err != nil {
		return err
	}
	logging.Info("report written", "path", path)
	return nil
}
