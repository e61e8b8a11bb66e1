// Command streamzip walks a directory tree and streams it to stdout (or a
// file) as a ZIP archive, without ever materializing the whole archive in
// memory.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/lukasmartin/streamzip"
)

// ErrUnsupportedMethod is returned when --method names a strategy this CLI
// doesn't know how to select.
var ErrUnsupportedMethod = errors.New("unsupported method")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "streamzip",
		Usage:     "Stream a directory tree into a ZIP archive",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file (default: stdout)",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "WinZip AE-2 password (empty disables encryption)",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "fixed size of emitted blocks",
				Value: 65536,
			},
			&cli.StringFlag{
				Name:  "method",
				Usage: "per-file output strategy: deflate, store, or auto",
				Value: "auto",
			},
			&cli.BoolFlag{
				Name:  "no-timestamps",
				Usage: "omit the UNIX extended-timestamp extra field",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("streamzip: expected exactly one directory argument", 1)
			}

			switch c.String("method") {
			case "deflate", "store", "auto":
			default:
				return fmt.Errorf("%w: %q", ErrUnsupportedMethod, c.String("method"))
			}

			sink := os.Stdout
			if output := c.String("output"); output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				sink = f
			}

			cfg := streamzip.Config{
				ChunkSize:                 c.Int("chunk-size"),
				Password:                  c.String("password"),
				DisableExtendedTimestamps: c.Bool("no-timestamps"),
			}
			return streamDir(c.Args().First(), sink, cfg, c.String("method"))
		},
	}
}

// chooseMethod maps the --method flag to a per-file streamzip.Method. The
// 64 bit Deflate/Store variants are used for explicit selections since they
// are a strict superset of their 32 bit counterparts; only "auto" reasons
// about the running offset to pick between them.
func chooseMethod(name string, size int64) streamzip.Method {
	switch name {
	case "deflate":
		return streamzip.Deflate64()
	case "store":
		return streamzip.StoreBuffered64()
	default:
		return streamzip.Auto(uint64(size), 9)
	}
}

func streamDir(root string, sink *os.File, cfg streamzip.Config, method string) error {
	w := streamzip.NewWriter(sink, cfg)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if !(info.Mode().IsRegular() || info.IsDir()) {
			return nil
		}

		relpath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		member := streamzip.Member{
			Name:     filepath.ToSlash(relpath),
			Modified: info.ModTime(),
			Mode:     info.Mode(),
		}

		if info.IsDir() {
			member.Name += "/"
			member.Method = streamzip.StoreBuffered32()
			return w.Add(member)
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		member.Content = file
		member.Method = chooseMethod(method, info.Size())
		return w.Add(member)
	})
	if err != nil {
		return err
	}

	return w.Close()
}
