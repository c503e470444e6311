package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ulikunitz/xz"
	"github.com/urfave/cli/v2"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/image"
	"github.com/dargueta/rompatch/logging"
	"github.com/dargueta/rompatch/ppf"
)

var ppfCommand = &cli.Command{
	Name:  "ppf",
	Usage: "Inspect, apply, and create PPF patches",
	Subcommands: []*cli.Command{
		{
			Name:      "info",
			Usage:     "Describe a patch",
			ArgsUsage: "PATCH",
			Action:    describePatch,
		},
		{
			Name:      "apply",
			Usage:     "Apply a patch to an image in place",
			ArgsUsage: "PATCH  IMAGE",
			Action:    applyPatch,
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "skip-validation", Usage: "ignore the validation block"},
				&cli.BoolFlag{Name: "revert", Usage: "restore the original bytes using the undo data"},
			},
		},
		{
			Name:      "make",
			Usage:     "Create a PPF3 patch from two images of the same size",
			ArgsUsage: "ORIGINAL  MODIFIED  PATCH",
			Action:    makePatch,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "description", Usage: "up to 50 characters"},
				&cli.BoolFlag{Name: "undo", Usage: "store the original bytes"},
				&cli.BoolFlag{Name: "block-check", Usage: "embed the validation block"},
				&cli.StringFlag{Name: "file-id", Usage: "file with the FILE_ID.DIZ text"},
				&cli.BoolFlag{Name: "xz", Usage: "compress the patch with xz"},
			},
		},
	},
}

func describePatch(context *cli.Context) error {
	if err := requireArgs(context, 1); err != nil {
		return err
	}
	patch, err := ppf.Open(context.Args().Get(0))
	if err != nil {
		return err
	}

	fmt.Printf("version:      %s\n", patch.Version)
	fmt.Printf("description:  %s\n", patch.Description)
	fmt.Printf("records:      %d (%d bytes)\n", len(patch.Records), patch.Bytes())
	fmt.Printf("undo data:    %t\n", patch.HasUndo)
	if patch.ValidationBlock != nil {
		fmt.Printf("validation:   1 KiB at offset %d\n", patch.ValidationOffset())
	}
	if patch.ExpectedSize != 0 {
		fmt.Printf("image size:   %d\n", patch.ExpectedSize)
	}
	if patch.FileID != "" {
		fmt.Printf("\n%s\n", patch.FileID)
	}
	return nil
}

func applyPatch(context *cli.Context) error {
	if err := requireArgs(context, 2); err != nil {
		return err
	}
	patch, err := ppf.Open(context.Args().Get(0))
	if err != nil {
		return err
	}
	img, err := image.Open(context.Args().Get(1), 0)
	if err != nil {
		return err
	}
	defer img.Close()

	if context.Bool("revert") {
		err = patch.Revert(img, img.Size())
	} else {
		err = patch.Apply(img, img.Size(), ppf.ApplyOptions{SkipValidation: context.Bool("skip-validation")})
	}
	if err != nil {
		return err
	}
	if err = img.Commit(); err != nil {
		return err
	}
	logging.Info("patch applied", "records", len(patch.Records), "image", img.Path())
	return nil
}

func makePatch(context *cli.Context) error {
	if err := requireArgs(context, 3); err != nil {
		return err
	}
	original, err := os.ReadFile(context.Args().Get(0))
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	modified, err := os.ReadFile(context.Args().Get(1))
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}

	options := ppf.DiffOptions{
		Description: context.String("description"),
		Undo:        context.Bool("undo"),
		BlockCheck:  context.Bool("block-check"),
	}
	if path := context.String("file-id"); path != "" {
		fileID, err := os.ReadFile(path)
		if err != nil {
			return rompatch.ErrIOFailed.Wrap(err)
		}
		options.FileID = string(fileID)
	}

	patch, err := ppf.Diff(original, modified, options)
	if err != nil {
		return err
	}
	encoded, err := patch.Encode()
	if err != nil {
		return err
	}
	if context.Bool("xz") {
		if encoded, err = compressXZ(encoded); err != nil {
			return err
		}
	}

	if err = os.WriteFile(context.Args().Get(2), encoded, 0o644); err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	logging.Info("patch created", "records", len(patch.Records), "size", len(encoded))
	return nil
}

func compressXZ(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := xz.NewWriter(&buffer)
	if err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}
	if _, err = writer.Write(data); err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}
	if err = writer.Close(); err != nil {
		return nil, rompatch.ErrIOFailed.Wrap(err)
	}
	return buffer.Bytes(), nil
}
