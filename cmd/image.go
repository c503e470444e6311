package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/rompatch"
	"github.com/dargueta/rompatch/bittable"
	"github.com/dargueta/rompatch/games"
	"github.com/dargueta/rompatch/image"
	"github.com/dargueta/rompatch/logging"
	"github.com/dargueta/rompatch/textcodec"
	"github.com/dargueta/rompatch/utilities/compression"
)

var imageCommand = &cli.Command{
	Name:  "image",
	Usage: "Inspect disc images and test fixtures",
	Subcommands: []*cli.Command{
		{
			Name:      "pack",
			Usage:     "Compress a file using RLE8 and gzip",
			ArgsUsage: "INPUT  OUTPUT",
			Action: func(context *cli.Context) error {
				return convertFile(context, compression.CompressImage)
			},
		},
		{
			Name:      "unpack",
			Usage:     "Expand a file compressed with RLE8 and gzip",
			ArgsUsage: "INPUT  OUTPUT",
			Action: func(context *cli.Context) error {
				return convertFile(context, compression.DecompressImage)
			},
		},
		{
			Name:      "digest",
			Usage:     "Print the BLAKE3 digest of an image",
			ArgsUsage: "IMAGE",
			Action:    printDigest,
		},
		{
			Name:      "slots",
			Usage:     "List what every slot of a pool currently holds",
			ArgsUsage: "IMAGE",
			Action:    listSlots,
			Flags: []cli.Flag{
				targetFlag,
				&cli.StringFlag{Name: "pool", Usage: "defaults to the target's main pool"},
				&cli.StringFlag{Name: "field", Value: "name", Usage: "text field to decode"},
				&cli.StringFlag{Name: "charset", Value: "ascii", Usage: "ascii, ascii-upper, ascii-lower or shift-jis"},
			},
		},
	},
}

var tdbCommand = &cli.Command{
	Name:      "tdb",
	Usage:     "Dump the tables of a TDB database",
	ArgsUsage: "DATABASE",
	Action:    dumpTDB,
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "table", Usage: "only dump this table"},
	},
}

// convertFile streams the first argument through `convert` into the second.
func convertFile(context *cli.Context, convert func(io.Reader, io.Writer) (int64, error)) error {
	if err := requireArgs(context, 2); err != nil {
		return err
	}
	input, err := os.Open(context.Args().Get(0))
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	defer input.Close()

	output, err := os.Create(context.Args().Get(1))
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	defer output.Close()

	written, err := convert(input, output)
	if err != nil {
		return err
	}
	logging.Info("file converted", "command", context.Command.Name, "bytes", written)
	return nil
}

func printDigest(context *cli.Context) error {
	if err := requireArgs(context, 1); err != nil {
		return err
	}
	digest, err := image.DigestFile(context.Args().Get(0))
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", digest, context.Args().Get(0))
	return nil
}

func listSlots(context *cli.Context) error {
	if err := requireArgs(context, 1); err != nil {
		return err
	}
	target, err := games.ByName(context.String("target"))
	if err != nil {
		return err
	}
	cs, ok := textcodec.Lookup(context.String("charset"))
	if !ok {
		return rompatch.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unknown charset %q", context.String("charset")))
	}
	poolName := context.String("pool")
	if poolName == "" {
		poolName = target.DefaultPool()
	}
	pool, err := target.Pool(poolName)
	if err != nil {
		return err
	}

	file, err := os.Open(context.Args().Get(0))
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	defer file.Close()

	names, err := games.ReadSlotNames(target, file, pool.Name, context.String("field"), cs)
	if err != nil {
		return err
	}
	for i, name := range names {
		fmt.Printf("%-6s %s\n", pool.Label(i), name)
	}
	return nil
}

func dumpTDB(context *cli.Context) error {
	if err := requireArgs(context, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(context.Args().Get(0))
	if err != nil {
		return rompatch.ErrIOFailed.Wrap(err)
	}
	file, err := bittable.ParseFile(data)
	if err != nil {
		return err
	}

	names := file.TableNames()
	if only := context.String("table"); only != "" {
		names = []string{only}
	}
	for _, name := range names {
		table, err := file.Table(name)
		if err != nil {
			return err
		}
		fmt.Printf(
			"%s: %d of %d records, %d bytes each\n",
			table.Name,
			table.Header.Count,
			table.Header.Capacity,
			table.Header.Stride)

		for i := 0; i < table.Header.Count; i++ {
			record, err := table.Read(i)
			if err != nil {
				return err
			}
			fmt.Printf("  %5d", i)
			for _, field := range table.Fields {
				fmt.Printf(" %s=%v", field.Name, record[field.Name])
			}
			fmt.Println()
		}
	}
	return nil
}
