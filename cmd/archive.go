package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/archive"
	"github.com/dargueta/rompatch/logging"
	"github.com/dargueta/rompatch/utilities/compression"
)

var formatFlag = &cli.StringFlag{
	Name:  "format",
	Usage: "bigf or afs; detected from the magic number if not given",
}

var archiveCommand = &cli.Command{
	Name:  "archive",
	Usage: "Work with BIGF and AFS containers",
	Subcommands: []*cli.Command{
		{
			Name:      "list",
			Usage:     "List the files in an archive",
			ArgsUsage: "ARCHIVE",
			Action:    listArchive,
			Flags:     []cli.Flag{formatFlag},
		},
		{
			Name:      "extract",
			Usage:     "Copy one file out of an archive",
			ArgsUsage: "ARCHIVE  NAME  OUTPUT",
			Action:    extractFromArchive,
			Flags: []cli.Flag{
				formatFlag,
				&cli.BoolFlag{Name: "decompress", Usage: "expand RefPack-compressed files"},
			},
		},
		{
			Name:      "replace",
			Usage:     "Replace one file of an archive",
			ArgsUsage: "ARCHIVE  NAME  FILE",
			Action:    replaceInArchive,
			Flags: []cli.Flag{
				formatFlag,
				&cli.BoolFlag{Name: "compress", Usage: "RefPack-compress the new file first"},
				&cli.BoolFlag{Name: "in-place", Usage: "fail instead of rebuilding if the file doesn't fit"},
				&cli.StringFlag{Name: "output", Usage: "write here instead of overwriting ARCHIVE"},
			},
		},
	},
}

var refpackCommand = &cli.Command{
	Name:  "refpack",
	Usage: "Compress or expand RefPack data",
	Subcommands: []*cli.Command{
		{
			Name:      "compress",
			ArgsUsage: "INPUT  OUTPUT",
			Action: func(context *cli.Context) error {
				return convertFile(context, compression.CompressRefPack)
			},
		},
		{
			Name:      "decompress",
			ArgsUsage: "INPUT  OUTPUT",
			Action: func(context *cli.Context) error {
				return convertFile(context, compression.DecompressRefPack)
			},
		},
	},
}

func openArchive(context *cli.Context) (archive.Format, []byte, error) {
	data, err := os.ReadFile(context.Args().Get(0))
	if err != nil {
		return nil, nil, rompatch.ErrIOFailed.Wrap(err)
	}

	var format archive.Format
	if name := context.String("format"); name != "" {
		format, err = archive.FormatByName(name)
	} else {
		format, err = archive.Detect(data)
	}
	return format, data, err
}

func listArchive(context *cli.Context) error {
	if err := requireArgs(context, 1); err != nil {
		return err
	}
	format, data, err := openArchive(context)
	if err != nil {
		return err
	}
	entries, err := format.Parse(data)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		compressed := ""
		if entry.Size > 0 && compression.IsRefPack(data[entry.Offset:entry.End()]) {
			compressed = "refpack"
		}
		fmt.Printf("%10d %10d  %-8s %s\n", entry.Offset, entry.Size, compressed, entry.Name)
	}
	return nil
}

func extractFromArchive(context *cli.Context) error {
	if err := requireArgs(context, 3); err != nil {
		return err
	}
	format, data, err := openArchive(context)
	if err != nil {
		return err
	}

	contents, err := archive.Extract(format, data, context.Args().Get(1))
	if err != nil {
		return err
	}
	if context.Bool("decompress") && compression.IsRefPack(contents) {
		if contents, err = compression.DecodeRefPack(contents); err != nil {
			return err
		}
	}

	if err = os.WriteFile(context.Args().Get(2), contents, 0o644); err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	return nil
}

func replaceInArchive(context *cli.Context) error {
	if err := requireArgs(context, 3); err != nil {
		return err
	}
	format, data, err := openArchive(context)
	if err != nil {
		return err
	}
	name := context.Args().Get(1)

	contents, err := os.ReadFile(context.Args().Get(2))
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	if context.Bool("compress") {
		if contents, err = compression.EncodeRefPack(contents); err != nil {
			return err
		}
	}

	if context.Bool("in-place") {
		err = archive.ReplaceInPlace(format, data, name, contents)
	} else {
		data, err = archive.Replace(format, data, name, contents)
	}
	if err != nil {
		return err
	}

	output := context.String("output")
	if output == "" {
		output = context.Args().Get(0)
	}
	if err = os.WriteFile(output, data, 0o644); err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	logging.Info("archive updated", "format", format.Name(), "file", name, "bytes", len(contents))
	return nil
}
