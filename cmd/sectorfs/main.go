// Command sectorfs is a console front end for the file system: it
// formats a host-file-backed disk image and creates, lists, fills and
// removes files on it.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/sectorfs/sectorfs/common"
	"github.com/sectorfs/sectorfs/disk"
	"github.com/sectorfs/sectorfs/fs"
)

func openVolume(c *cli.Context, format bool) (*fs.FileSystem, error) {
	d, err := disk.NewFileDisk(c.String("disk"), common.NumSectors)
	if err != nil {
		return nil, fmt.Errorf("opening disk image: %w", err)
	}
	return fs.New(d, format)
}

func main() {
	app := &cli.App{
		Name:  "sectorfs",
		Usage: "operate on a sectorfs disk image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "disk",
				Value: "DISK",
				Usage: "path of the disk image",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "format",
				Usage: "initialize an empty volume on the disk image",
				Action: func(c *cli.Context) error {
					_, err := openVolume(c, true)
					return err
				},
			},
			{
				Name:      "create",
				Usage:     "create a file of a fixed size",
				ArgsUsage: "PATH SIZE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("usage: create PATH SIZE")
					}
					size, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
					if err != nil {
						return fmt.Errorf("bad size %q: %w", c.Args().Get(1), err)
					}
					fsys, err := openVolume(c, false)
					if err != nil {
						return err
					}
					return fsys.Create(c.Args().Get(0), size)
				},
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "PATH",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("usage: mkdir PATH")
					}
					fsys, err := openVolume(c, false)
					if err != nil {
						return err
					}
					return fsys.MkDir(c.Args().Get(0))
				},
			},
			{
				Name:      "ls",
				Usage:     "list a directory",
				ArgsUsage: "[PATH]",
				Action: func(c *cli.Context) error {
					fsys, err := openVolume(c, false)
					if err != nil {
						return err
					}
					return fsys.List(os.Stdout, c.Args().Get(0))
				},
			},
			{
				Name:      "rm",
				Usage:     "remove a file",
				ArgsUsage: "PATH",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("usage: rm PATH")
					}
					fsys, err := openVolume(c, false)
					if err != nil {
						return err
					}
					return fsys.Remove(c.Args().Get(0))
				},
			},
			{
				Name:      "copyin",
				Usage:     "copy a host file into the volume",
				ArgsUsage: "HOSTPATH PATH",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("usage: copyin HOSTPATH PATH")
					}
					data, err := os.ReadFile(c.Args().Get(0))
					if err != nil {
						return err
					}
					fsys, err := openVolume(c, false)
					if err != nil {
						return err
					}
					path := c.Args().Get(1)
					if err := fsys.Create(path, uint64(len(data))); err != nil {
						return err
					}
					id, err := fsys.OpenID(path)
					if err != nil {
						return err
					}
					defer fsys.CloseID(id)
					n, err := fsys.WriteID(id, data)
					if err != nil {
						return err
					}
					if n != len(data) {
						return fmt.Errorf("short write: %d of %d bytes", n, len(data))
					}
					return nil
				},
			},
			{
				Name:      "cat",
				Usage:     "print a file's contents",
				ArgsUsage: "PATH",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("usage: cat PATH")
					}
					fsys, err := openVolume(c, false)
					if err != nil {
						return err
					}
					id, err := fsys.OpenID(c.Args().Get(0))
					if err != nil {
						return err
					}
					defer fsys.CloseID(id)
					buf := make([]byte, disk.SectorSize)
					for {
						n, err := fsys.ReadID(id, buf)
						if err != nil {
							return err
						}
						if n == 0 {
							return nil
						}
						if _, err := os.Stdout.Write(buf[:n]); err != nil {
							return err
						}
					}
				},
			},
			{
				Name:  "info",
				Usage: "dump the volume's metadata",
				Action: func(c *cli.Context) error {
					fsys, err := openVolume(c, false)
					if err != nil {
						return err
					}
					fsys.Print(os.Stdout)
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
