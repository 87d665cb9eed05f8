package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/FireworkMC/anvil/v2"
	"github.com/FireworkMC/anvil/v2/nbt"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var maxDepthFlag = &cli.IntFlag{
	Name:  "max-depth",
	Usage: "maximum nesting depth accepted while decoding",
	Value: 512,
}

func main() {
	app := &cli.App{
		Name:  "anvil",
		Usage: "inspect NBT files and region files",
		Commands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "print the tree of an NBT file",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{maxDepthFlag},
				Action:    dump,
			},
			{
				Name:      "chunks",
				Usage:     "list the chunks stored in a region file",
				ArgsUsage: "REGION",
				Action:    chunks,
			},
			{
				Name:      "chunk",
				Usage:     "print the tree of a single chunk",
				ArgsUsage: "REGION X Z",
				Flags:     []cli.Flag{maxDepthFlag},
				Action:    chunk,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dump(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("dump: expected a single file", 2)
	}

	roots, err := nbt.ReadFile(afero.NewOsFs(), c.Args().First(), nbt.WithMaxDepth(c.Int("max-depth")))
	if err != nil {
		return err
	}
	for _, root := range roots {
		if err = printTree(os.Stdout, root); err != nil {
			return err
		}
	}
	return nil
}

func chunks(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("chunks: expected a single region file", 2)
	}

	f, err := anvil.OpenFile(c.Args().First(), true)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, pos := range f.Chunks() {
		x, z := pos.Local()
		entry, _ := f.Info(x, z)
		fmt.Printf("%2d %2d (%d, %d) offset=%d sectors=%d modified=%s\n",
			x, z, pos.X, pos.Z, entry.Offset(), entry.Sectors(), entry.Modified().UTC().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func chunk(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("chunk: expected a region file and the position of the chunk inside it", 2)
	}

	x, err := localCoord(c.Args().Get(1))
	if err != nil {
		return err
	}
	z, err := localCoord(c.Args().Get(2))
	if err != nil {
		return err
	}

	f, err := anvil.OpenFile(c.Args().First(), true)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err = f.Read(x, z, &buf); err != nil {
		return err
	}
	root, _, err := nbt.Decode(buf.Bytes(), nbt.WithMaxDepth(c.Int("max-depth")))
	if err != nil {
		return err
	}
	return printTree(os.Stdout, root)
}

func localCoord(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil || v > 31 {
		return 0, cli.Exit(fmt.Sprintf("invalid chunk coordinate %q, expected 0-31", s), 2)
	}
	return uint8(v), nil
}

// printTree prints one line per node with the kind, depth, encoded size, name and value.
func printTree(w io.Writer, root nbt.Named) error {
	return nbt.Walk(root, func(n nbt.Node) error {
		_, err := fmt.Fprintf(w, "%-16s %3d %7dB %s%s = %s\n",
			n.Kind, n.Depth, n.Size, strings.Repeat("  ", n.Depth), n.Name, n.Value)
		return err
	})
}
